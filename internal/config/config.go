// Package config holds the operator's console preferences stored in
// ~/.oxyadmin/config.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults applied when a field is absent from the config file.
const (
	DefaultAPIPrefix    = "/api/v1"
	DefaultBackendURL   = "http://127.0.0.1:8000"
	DefaultNoticeMillis = 3000

	// EnvURL overrides the selected backend's base URL.
	EnvURL = "OXYADMIN_URL"
	// EnvHome relocates the config directory (mainly for tests).
	EnvHome = "OXYADMIN_HOME"
)

// FallbackMode controls when a store substitutes the demo dataset.
type FallbackMode string

const (
	FallbackOff     FallbackMode = "off"
	FallbackInitial FallbackMode = "initial" // only before the first successful load
	FallbackAlways  FallbackMode = "always"  // whenever a load fails and the store is empty
)

// ParseFallbackMode accepts off|initial|always (case-insensitive).
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch FallbackMode(strings.ToLower(strings.TrimSpace(s))) {
	case FallbackOff, "false", "no":
		return FallbackOff, nil
	case FallbackInitial, "":
		return FallbackInitial, nil
	case FallbackAlways:
		return FallbackAlways, nil
	}
	return "", fmt.Errorf("invalid demo fallback mode %q (want off, initial or always)", s)
}

// Backend is a named admin API endpoint.
type Backend struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PushoverConfig holds credentials for forwarding change events to
// phones via pushover.net.
type PushoverConfig struct {
	UserKey  string `json:"user_key,omitempty"`
	AppToken string `json:"app_token,omitempty"`
}

// Configured reports whether both credentials are set.
func (p PushoverConfig) Configured() bool {
	return strings.TrimSpace(p.UserKey) != "" && strings.TrimSpace(p.AppToken) != ""
}

// Config is the persisted console configuration.
type Config struct {
	Backends       []Backend    `json:"backends,omitempty"`
	DefaultBackend string       `json:"default_backend,omitempty"`
	APIPrefix      string       `json:"api_prefix,omitempty"`
	NoticeMillis   int          `json:"notice_ms,omitempty"`
	DemoFallback   FallbackMode `json:"demo_fallback,omitempty"`
	Timeout        string       `json:"timeout,omitempty"` // Go duration; empty = no timeout
	LiveUpdates    bool         `json:"live_updates,omitempty"`

	Pushover PushoverConfig `json:"pushover,omitempty"`
}

// Dir returns the config directory, creating it if needed.
func Dir() string {
	dir := strings.TrimSpace(os.Getenv(EnvHome))
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.TempDir()
		}
		dir = filepath.Join(home, ".oxyadmin")
	}
	os.MkdirAll(dir, 0755)
	return dir
}

func configPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads the config file, returning defaults if it does not exist.
func Load() (*Config, error) {
	data, err := os.ReadFile(configPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &Config{}
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath(), err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the config file.
func Save(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.APIPrefix) == "" {
		c.APIPrefix = DefaultAPIPrefix
	}
	if c.NoticeMillis <= 0 {
		c.NoticeMillis = DefaultNoticeMillis
	}
	if mode, err := ParseFallbackMode(string(c.DemoFallback)); err == nil {
		c.DemoFallback = mode
	} else {
		c.DemoFallback = FallbackInitial
	}
}

// NoticeTTL is how long a notification stays on screen.
func (c *Config) NoticeTTL() time.Duration {
	return time.Duration(c.NoticeMillis) * time.Millisecond
}

// RequestTimeout parses Timeout; zero means no timeout.
func (c *Config) RequestTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

// AddBackend appends a backend. Returns an error if the name already exists
// or the URL is not absolute.
func (c *Config) AddBackend(b Backend) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return errors.New("backend name is required")
	}
	normalized, err := NormalizeURL(b.URL)
	if err != nil {
		return err
	}
	b.URL = normalized
	for _, existing := range c.Backends {
		if strings.EqualFold(existing.Name, b.Name) {
			return errors.New("backend already exists: " + b.Name)
		}
	}
	c.Backends = append(c.Backends, b)
	if c.DefaultBackend == "" {
		c.DefaultBackend = b.Name
	}
	return nil
}

// RemoveBackend removes a backend by name (case-insensitive).
func (c *Config) RemoveBackend(name string) {
	out := c.Backends[:0]
	for _, b := range c.Backends {
		if !strings.EqualFold(b.Name, name) {
			out = append(out, b)
		}
	}
	c.Backends = out
	if strings.EqualFold(c.DefaultBackend, name) {
		c.DefaultBackend = ""
		if len(c.Backends) > 0 {
			c.DefaultBackend = c.Backends[0].Name
		}
	}
}

// FindBackend returns a pointer to a backend by name, or nil if not found.
func (c *Config) FindBackend(name string) *Backend {
	for i := range c.Backends {
		if strings.EqualFold(c.Backends[i].Name, name) {
			return &c.Backends[i]
		}
	}
	return nil
}

// ResolveURL picks the base URL for a session: an explicit flag value wins,
// then OXYADMIN_URL, then the named (or default) backend, then the built-in
// default.
func (c *Config) ResolveURL(flagURL, backendName string) (string, error) {
	if v := strings.TrimSpace(flagURL); v != "" {
		return NormalizeURL(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvURL)); v != "" {
		return NormalizeURL(v)
	}
	name := strings.TrimSpace(backendName)
	if name == "" {
		name = c.DefaultBackend
	}
	if name != "" {
		b := c.FindBackend(name)
		if b == nil {
			return "", fmt.Errorf("unknown backend %q", name)
		}
		return b.URL, nil
	}
	return DefaultBackendURL, nil
}

// NormalizeURL trims whitespace and trailing slashes and requires an
// http(s) scheme. Bare host:port values get http://.
func NormalizeURL(raw string) (string, error) {
	v := strings.TrimRight(strings.TrimSpace(raw), "/")
	if v == "" {
		return "", errors.New("backend url is required")
	}
	if strings.HasPrefix(v, ":") {
		v = "http://127.0.0.1" + v
	} else if !strings.Contains(v, "://") {
		v = "http://" + v
	}
	u, err := url.Parse(v)
	if err != nil {
		return "", fmt.Errorf("invalid backend url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid backend url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend url %q: missing host", raw)
	}
	return v, nil
}
