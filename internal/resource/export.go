package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ExportFormats accepted by EncodeConfig.
var ExportFormats = []string{"json", "yaml", "toml"}

// EncodeConfig renders cfg in the requested format. Field names follow the
// wire names in every format.
func EncodeConfig(cfg SystemConfig, format string) ([]byte, error) {
	// Round-trip through the JSON tags so yaml and toml output use the same
	// snake_case keys as the API.
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return json.MarshalIndent(cfg, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(generic)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(generic); err != nil {
			return nil, fmt.Errorf("encoding toml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q (want %s)", format, strings.Join(ExportFormats, ", "))
}

// DecodeConfig parses a configuration file written by EncodeConfig, or by
// hand, in the given format. Keys use the wire names.
func DecodeConfig(data []byte, format string) (SystemConfig, error) {
	var cfg SystemConfig
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" || format == "json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decoding json: %w", err)
		}
		return cfg, nil
	}

	var generic map[string]any
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return cfg, fmt.Errorf("decoding yaml: %w", err)
		}
	case "toml":
		if _, err := toml.Decode(string(data), &generic); err != nil {
			return cfg, fmt.Errorf("decoding toml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported import format %q (want %s)", format, strings.Join(ExportFormats, ", "))
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding %s: %w", format, err)
	}
	return cfg, nil
}

// FormatOf guesses a config format from a file name extension.
func FormatOf(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return "json"
	}
	return strings.ToLower(filename[i+1:])
}
