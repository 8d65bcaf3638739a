package console

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// SystemAPI is the system part of apiclient.Client.
type SystemAPI interface {
	GetSystemConfig(ctx context.Context) (resource.SystemConfig, error)
	UpdateSystemConfig(ctx context.Context, cfg resource.SystemConfig) (resource.SystemConfig, error)
	SystemStatus(ctx context.Context) (resource.SystemStatus, error)
	ExportConfig(ctx context.Context) (resource.ExportInfo, error)
	Restart(ctx context.Context) (resource.RestartInfo, error)
}

type SystemLoadedMsg struct {
	gen       uint64
	Config    resource.SystemConfig
	Status    *resource.SystemStatus
	Err       error
	StatusErr error
}

type SystemSavedMsg struct {
	Config resource.SystemConfig
	Err    error
}

// ExportedMsg pairs the backend's export answer with a local rendering of
// the saved configuration.
type ExportedMsg struct {
	Info   resource.ExportInfo
	Format string
	Data   []byte
	Err    error
}

type RestartedMsg struct {
	Info resource.RestartInfo
	Err  error
}

// SystemScreen edits the configuration singleton. Edits go to a draft
// that is pushed whole on Save.
type SystemScreen struct {
	api      SystemAPI
	notifier notify.Notifier
	fallback resource.SystemConfig
	mode     config.FallbackMode

	saved          resource.SystemConfig
	draft          resource.SystemConfig
	status         *resource.SystemStatus
	loaded         bool
	demo           bool
	saving         bool
	pendingRestart bool
	gen            uint64
}

func NewSystemScreen(api SystemAPI, n notify.Notifier, fallback resource.SystemConfig, mode config.FallbackMode) *SystemScreen {
	return &SystemScreen{api: api, notifier: n, fallback: fallback, mode: mode}
}

func (s *SystemScreen) Draft() resource.SystemConfig  { return s.draft }
func (s *SystemScreen) Saved() resource.SystemConfig  { return s.saved }
func (s *SystemScreen) Status() *resource.SystemStatus { return s.status }
func (s *SystemScreen) Loaded() bool                   { return s.loaded }
func (s *SystemScreen) ShowingDemo() bool              { return s.demo }
func (s *SystemScreen) Saving() bool                   { return s.saving }

// Dirty reports unsaved draft edits.
func (s *SystemScreen) Dirty() bool {
	return !reflect.DeepEqual(s.saved, s.draft)
}

// LoadCmd fetches the configuration and status together. Only the
// configuration is required.
func (s *SystemScreen) LoadCmd() tea.Cmd {
	s.gen++
	gen := s.gen
	api := s.api
	return func() tea.Msg {
		ctx := context.Background()
		msg := SystemLoadedMsg{gen: gen}
		msg.Config, msg.Err = api.GetSystemConfig(ctx)
		if msg.Err == nil {
			st, err := api.SystemStatus(ctx)
			if err == nil {
				msg.Status = &st
			}
			msg.StatusErr = err
		}
		return msg
	}
}

// ApplyLoaded installs a fresh configuration and discards the draft.
func (s *SystemScreen) ApplyLoaded(msg SystemLoadedMsg) error {
	if msg.gen != s.gen {
		return nil
	}
	if msg.Err != nil {
		if !s.loaded && !s.demo && s.mode != config.FallbackOff {
			s.saved = s.fallback.Clone()
			s.draft = s.saved.Clone()
			s.demo = true
			s.notifier.Notify("Backend unavailable, showing demo system configuration", notify.SeverityInfo)
		}
		return msg.Err
	}
	s.saved = msg.Config
	s.draft = msg.Config.Clone()
	s.status = msg.Status
	s.loaded = true
	s.demo = false
	debug.LogKV("system", "config loaded", "llms", len(msg.Config.LLMConfigs), "dbs", len(msg.Config.DatabaseConfigs))
	return nil
}

// Discard drops draft edits.
func (s *SystemScreen) Discard() {
	s.draft = s.saved.Clone()
}

func (s *SystemScreen) SetLogLevel(level string) error {
	v := strings.ToUpper(strings.TrimSpace(level))
	if !slices.Contains(resource.LogLevels, v) {
		return &InputError{Field: "log_level", Message: fmt.Sprintf("Log level must be one of: %s", strings.Join(resource.LogLevels, ", "))}
	}
	s.draft.LogLevel = v
	return nil
}

func (s *SystemScreen) SetCacheDir(dir string) {
	s.draft.CacheDir = strings.TrimSpace(dir)
}

// AddLLM appends a model configuration. Names are unique.
func (s *SystemScreen) AddLLM(c resource.LLMConfig) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return &InputError{Field: "name", Message: "LLM name is required"}
	}
	for _, existing := range s.draft.LLMConfigs {
		if existing.Name == c.Name {
			return &InputError{Field: "name", Message: fmt.Sprintf("LLM %q already exists", c.Name)}
		}
	}
	s.draft.LLMConfigs = append(slices.Clone(s.draft.LLMConfigs), c)
	return nil
}

func (s *SystemScreen) RemoveLLM(i int) {
	if i < 0 || i >= len(s.draft.LLMConfigs) {
		return
	}
	s.draft.LLMConfigs = slices.Delete(slices.Clone(s.draft.LLMConfigs), i, i+1)
}

func (s *SystemScreen) AddDatabase(d resource.DatabaseConfig) error {
	d.Type = strings.TrimSpace(d.Type)
	if d.Type == "" {
		return &InputError{Field: "type", Message: "Database type is required"}
	}
	s.draft.DatabaseConfigs = append(slices.Clone(s.draft.DatabaseConfigs), d)
	return nil
}

func (s *SystemScreen) RemoveDatabase(i int) {
	if i < 0 || i >= len(s.draft.DatabaseConfigs) {
		return
	}
	s.draft.DatabaseConfigs = slices.Delete(slices.Clone(s.draft.DatabaseConfigs), i, i+1)
}

// SetAdditional sets one additional_config entry. raw is parsed as JSON
// when it can be, otherwise stored as a string. An empty raw removes key.
func (s *SystemScreen) SetAdditional(key, raw string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &InputError{Field: "key", Message: "Key is required"}
	}
	next := make(map[string]any, len(s.draft.AdditionalConfig)+1)
	for k, v := range s.draft.AdditionalConfig {
		next[k] = v
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		delete(next, key)
	} else {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		next[key] = v
	}
	s.draft.AdditionalConfig = next
	return nil
}

// Save pushes the whole draft.
func (s *SystemScreen) Save() tea.Cmd {
	if s.saving {
		return nil
	}
	s.saving = true
	cfg := s.draft.Clone()
	api := s.api
	return func() tea.Msg {
		out, err := api.UpdateSystemConfig(context.Background(), cfg)
		return SystemSavedMsg{Config: out, Err: err}
	}
}

func (s *SystemScreen) ApplySaved(msg SystemSavedMsg) {
	s.saving = false
	if msg.Err != nil {
		return
	}
	s.saved = msg.Config
	s.draft = msg.Config.Clone()
	s.demo = false
	s.loaded = true
	s.notifier.Notify("System configuration saved", notify.SeveritySuccess)
}

// Export renders the saved configuration in format and asks the backend
// for its export link.
func (s *SystemScreen) Export(format string) (tea.Cmd, error) {
	data, err := resource.EncodeConfig(s.saved, format)
	if err != nil {
		ie := &InputError{Field: "format", Message: err.Error()}
		s.notifier.Notify(ie.Message, notify.SeverityWarning)
		return nil, ie
	}
	api := s.api
	return func() tea.Msg {
		info, err := api.ExportConfig(context.Background())
		return ExportedMsg{Info: info, Format: format, Data: data, Err: err}
	}, nil
}

func (s *SystemScreen) ApplyExported(msg ExportedMsg) {
	if msg.Err != nil {
		return
	}
	text := msg.Info.Message
	if text == "" {
		text = "Configuration exported"
	}
	s.notifier.Notify(text, notify.SeveritySuccess)
}

func (s *SystemScreen) RequestRestart()      { s.pendingRestart = true }
func (s *SystemScreen) CancelRestart()       { s.pendingRestart = false }
func (s *SystemScreen) RestartPending() bool { return s.pendingRestart }

// ConfirmRestart sends the armed restart.
func (s *SystemScreen) ConfirmRestart() tea.Cmd {
	if !s.pendingRestart {
		return nil
	}
	s.pendingRestart = false
	api := s.api
	return func() tea.Msg {
		info, err := api.Restart(context.Background())
		return RestartedMsg{Info: info, Err: err}
	}
}

func (s *SystemScreen) ApplyRestarted(msg RestartedMsg) {
	if msg.Err != nil {
		return
	}
	text := msg.Info.Message
	if text == "" {
		text = "System restart initiated"
	}
	s.notifier.Notify(text, notify.SeveritySuccess)
}

// Update routes system messages.
func (s *SystemScreen) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case SystemLoadedMsg:
		s.ApplyLoaded(msg)
	case SystemSavedMsg:
		s.ApplySaved(msg)
	case ExportedMsg:
		s.ApplyExported(msg)
	case RestartedMsg:
		s.ApplyRestarted(msg)
	default:
		return nil, false
	}
	return nil, true
}
