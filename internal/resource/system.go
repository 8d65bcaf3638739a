package resource

import "strings"

// LLMConfig describes one model endpoint.
type LLMConfig struct {
	Name          string         `json:"name"`
	APIKey        string         `json:"api_key,omitempty"`
	BaseURL       string         `json:"base_url,omitempty"`
	ModelName     string         `json:"model_name,omitempty"`
	DefaultParams map[string]any `json:"default_params,omitempty"`
}

// MaskedAPIKey keeps the first four characters.
func (c LLMConfig) MaskedAPIKey() string {
	return MaskSecret(c.APIKey)
}

// MaskSecret replaces everything after the first four characters with '*'.
func MaskSecret(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", len(v)-4)
}

type DatabaseConfig struct {
	Type             string         `json:"type"`
	ConnectionString string         `json:"connection_string,omitempty"`
	Config           map[string]any `json:"config,omitempty"`
}

// SystemConfig is the singleton configuration object. It has no id and is
// always written back whole.
type SystemConfig struct {
	LLMConfigs       []LLMConfig      `json:"llm_configs"`
	DatabaseConfigs  []DatabaseConfig `json:"database_configs"`
	LogLevel         string           `json:"log_level"`
	CacheDir         string           `json:"cache_dir"`
	AdditionalConfig map[string]any   `json:"additional_config,omitempty"`
}

// LogLevels accepted by the backend.
var LogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// ModelNames lists the configured LLM names, used as agent model options.
func (c SystemConfig) ModelNames() []string {
	out := make([]string, 0, len(c.LLMConfigs))
	for _, l := range c.LLMConfigs {
		out = append(out, l.Name)
	}
	return out
}

// Clone deep-copies the slices so edits never alias a loaded copy. Nested
// maps are shared.
func (c SystemConfig) Clone() SystemConfig {
	out := c
	out.LLMConfigs = append([]LLMConfig{}, c.LLMConfigs...)
	out.DatabaseConfigs = append([]DatabaseConfig{}, c.DatabaseConfigs...)
	return out
}

// SystemStatus is reported by GET /system/status.
type SystemStatus struct {
	Version                  string  `json:"version"`
	Status                   string  `json:"status"`
	Uptime                   float64 `json:"uptime"`
	ActiveMASCount           int     `json:"active_mas_count"`
	RegisteredAgentsCount    int     `json:"registered_agents_count"`
	RegisteredToolsCount     int     `json:"registered_tools_count"`
	RegisteredWorkflowsCount int     `json:"registered_workflows_count"`
}

// ExportInfo is returned by GET /system/export.
type ExportInfo struct {
	Status      string `json:"status"`
	DownloadURL string `json:"download_url"`
	Message     string `json:"message"`
}

// RestartInfo is returned by POST /system/restart.
type RestartInfo struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ImportInfo is returned by POST /system/import.
type ImportInfo struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
