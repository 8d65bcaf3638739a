package tui

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// sysInput names the single-line editor open on the system screen.
type sysInput string

const (
	sysInputCacheDir   sysInput = "cache_dir"
	sysInputLLM        sysInput = "llm"
	sysInputDatabase   sysInput = "database"
	sysInputAdditional sysInput = "additional"
	sysInputExport     sysInput = "export"
)

type sysItemKind int

const (
	sysItemLogLevel sysItemKind = iota
	sysItemCacheDir
	sysItemLLM
	sysItemAddLLM
	sysItemDatabase
	sysItemAddDatabase
	sysItemAdditional
	sysItemAddAdditional
)

// sysItem is one selectable line of the system screen.
type sysItem struct {
	kind  sysItemKind
	index int
	key   string
}

func systemItems(cfg resource.SystemConfig) []sysItem {
	items := []sysItem{{kind: sysItemLogLevel}, {kind: sysItemCacheDir}}
	for i := range cfg.LLMConfigs {
		items = append(items, sysItem{kind: sysItemLLM, index: i})
	}
	items = append(items, sysItem{kind: sysItemAddLLM})
	for i := range cfg.DatabaseConfigs {
		items = append(items, sysItem{kind: sysItemDatabase, index: i})
	}
	items = append(items, sysItem{kind: sysItemAddDatabase})
	for _, k := range additionalKeys(cfg) {
		items = append(items, sysItem{kind: sysItemAdditional, key: k})
	}
	return append(items, sysItem{kind: sysItemAddAdditional})
}

func additionalKeys(cfg resource.SystemConfig) []string {
	keys := make([]string, 0, len(cfg.AdditionalConfig))
	for k := range cfg.AdditionalConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m AppModel) selectedSysItem() (sysItem, bool) {
	items := systemItems(m.console.System.Draft())
	if m.sysSel < 0 || m.sysSel >= len(items) {
		return sysItem{}, false
	}
	return items[m.sysSel], true
}

func (m *AppModel) warn(err error) {
	m.console.Notifier.Notify(err.Error(), notify.SeverityWarning)
}

func (m *AppModel) openSysInput(in sysInput, value string) {
	m.sysInput = in
	m.sysInputText = value
	m.state = stateSystemInput
}

func (m AppModel) updateSystem(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if cmd, ok := m.handleNavKey(keyMsg); ok {
		return m, cmd
	}
	sys := m.console.System
	items := systemItems(sys.Draft())

	switch keyMsg.String() {
	case "j", "down":
		if m.sysSel < len(items)-1 {
			m.sysSel++
		}
		return m, nil
	case "k", "up":
		if m.sysSel > 0 {
			m.sysSel--
		}
		return m, nil
	case "r":
		return m, sys.LoadCmd()
	case "s", "ctrl+s":
		if !sys.Dirty() {
			m.console.Notifier.Notify("No changes to save", notify.SeverityInfo)
			return m, nil
		}
		return m, sys.Save()
	case "u":
		sys.Discard()
		m.clampSysSel()
		return m, nil
	case "x":
		m.openSysInput(sysInputExport, "json")
		return m, nil
	case "R":
		sys.RequestRestart()
		m.state = stateConfirmRestart
		return m, nil
	}

	item, ok := m.selectedSysItem()
	if !ok {
		return m, nil
	}
	draft := sys.Draft()
	switch keyMsg.String() {
	case "left", "right", " ":
		if item.kind == sysItemLogLevel {
			delta := 1
			if keyMsg.String() == "left" {
				delta = -1
			}
			if err := sys.SetLogLevel(nextLogLevel(draft.LogLevel, delta)); err != nil {
				m.warn(err)
			}
		}
	case "enter", "e":
		switch item.kind {
		case sysItemLogLevel:
			if err := sys.SetLogLevel(nextLogLevel(draft.LogLevel, 1)); err != nil {
				m.warn(err)
			}
		case sysItemCacheDir:
			m.openSysInput(sysInputCacheDir, draft.CacheDir)
		case sysItemAddLLM:
			m.openSysInput(sysInputLLM, "")
		case sysItemAddDatabase:
			m.openSysInput(sysInputDatabase, "")
		case sysItemAdditional:
			m.openSysInput(sysInputAdditional, item.key+"="+formatAdditional(draft.AdditionalConfig[item.key]))
		case sysItemAddAdditional:
			m.openSysInput(sysInputAdditional, "")
		}
	case "d", "delete":
		switch item.kind {
		case sysItemLLM:
			sys.RemoveLLM(item.index)
		case sysItemDatabase:
			sys.RemoveDatabase(item.index)
		case sysItemAdditional:
			if err := sys.SetAdditional(item.key, ""); err != nil {
				m.warn(err)
			}
		}
		m.clampSysSel()
	}
	return m, nil
}

func (m *AppModel) clampSysSel() {
	n := len(systemItems(m.console.System.Draft()))
	if m.sysSel >= n {
		m.sysSel = n - 1
	}
	if m.sysSel < 0 {
		m.sysSel = 0
	}
}

func nextLogLevel(cur string, delta int) string {
	levels := resource.LogLevels
	i := slices.Index(levels, strings.ToUpper(cur))
	n := len(levels)
	if i < 0 {
		return levels[0]
	}
	return levels[(i+delta+n)%n]
}

func formatAdditional(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func (m AppModel) updateSystemInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	initCmd := m.ensureTextInput("system-"+string(m.sysInput), m.sysInputText, 0)
	m.syncTextInput(m.sysInputText)
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEsc:
			m.state = stateSystem
			return m, nil
		case tea.KeyEnter:
			cmd, err := m.applySysInput()
			if err != nil {
				return m, initCmd
			}
			m.state = stateSystem
			m.clampSysSel()
			return m, cmd
		}
	}
	cmd := m.updateTextInput(msg)
	m.sysInputText = m.textInput.Value()
	return m, tea.Batch(initCmd, cmd)
}

// applySysInput hands the entered line to the system screen. Input errors
// are reported as warnings and keep the editor open.
func (m *AppModel) applySysInput() (tea.Cmd, error) {
	sys := m.console.System
	text := strings.TrimSpace(m.sysInputText)
	var err error
	switch m.sysInput {
	case sysInputCacheDir:
		sys.SetCacheDir(text)
	case sysInputLLM:
		var c resource.LLMConfig
		if c, err = parseLLMLine(text); err == nil {
			err = sys.AddLLM(c)
		}
	case sysInputDatabase:
		var d resource.DatabaseConfig
		if d, err = parseDatabaseLine(text); err == nil {
			err = sys.AddDatabase(d)
		}
	case sysInputAdditional:
		k, v, _ := strings.Cut(text, "=")
		err = sys.SetAdditional(k, v)
	case sysInputExport:
		// Export reports its own input errors.
		return sys.Export(text)
	}
	if err != nil {
		m.warn(err)
		return nil, err
	}
	return nil, nil
}

// parseLLMLine reads "name model [base_url] [api_key]".
func parseLLMLine(s string) (resource.LLMConfig, error) {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return resource.LLMConfig{}, &console.InputError{Field: "llm", Message: "Enter: name model [base_url] [api_key]"}
	}
	c := resource.LLMConfig{Name: parts[0], ModelName: parts[1]}
	if len(parts) > 2 {
		c.BaseURL = parts[2]
	}
	if len(parts) > 3 {
		c.APIKey = parts[3]
	}
	return c, nil
}

// parseDatabaseLine reads "type [connection_string]".
func parseDatabaseLine(s string) (resource.DatabaseConfig, error) {
	typ, conn, _ := strings.Cut(strings.TrimSpace(s), " ")
	if typ == "" {
		return resource.DatabaseConfig{}, &console.InputError{Field: "database", Message: "Enter: type [connection_string]"}
	}
	return resource.DatabaseConfig{Type: typ, ConnectionString: strings.TrimSpace(conn)}, nil
}

func (m AppModel) updateConfirmRestart(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	sys := m.console.System
	switch {
	case keyMsg.String() == "y" || keyMsg.String() == "Y" || key.Matches(keyMsg, m.keys.Enter):
		m.state = stateSystem
		return m, sys.ConfirmRestart()
	case keyMsg.String() == "n" || keyMsg.String() == "N" || key.Matches(keyMsg, m.keys.Escape, m.keys.Quit):
		sys.CancelRestart()
		m.state = stateSystem
	}
	return m, nil
}

func (m AppModel) systemLines(width int) []string {
	sys := m.console.System
	draft := sys.Draft()
	items := systemItems(draft)

	var lines []string
	title := "System configuration"
	if sys.Dirty() {
		title += " (modified)"
	}
	head := SectionStyle.Render(title)
	if sys.ShowingDemo() {
		head += " " + DemoBadgeStyle.Render("DEMO")
	}
	if sys.Saving() {
		head += " " + DimStyle.Render("saving...")
	}
	lines = append(lines, head, "")
	if !sys.Loaded() && !sys.ShowingDemo() {
		lines = append(lines, EmptyStateStyle.Render("Loading system configuration..."), "")
	}

	section := func(name string) {
		lines = append(lines, "", SectionStyle.Render(name))
	}
	for i, it := range items {
		switch it.kind {
		case sysItemLLM:
			if it.index == 0 {
				section("LLM configurations")
			}
		case sysItemAddLLM:
			if len(draft.LLMConfigs) == 0 {
				section("LLM configurations")
			}
		case sysItemDatabase:
			if it.index == 0 {
				section("Database configurations")
			}
		case sysItemAddDatabase:
			if len(draft.DatabaseConfigs) == 0 {
				section("Database configurations")
			}
		case sysItemAdditional:
			if it.key == additionalKeys(draft)[0] {
				section("Additional settings")
			}
		case sysItemAddAdditional:
			if len(draft.AdditionalConfig) == 0 {
				section("Additional settings")
			}
		}
		lines = append(lines, m.renderSysItem(draft, it, i == m.sysSel))
	}

	if st := sys.Status(); st != nil {
		section("Status")
		lines = append(lines,
			DetailLabelStyle.Render("Version")+DetailValueStyle.Render(st.Version),
			DetailLabelStyle.Render("Status")+DetailValueStyle.Render(st.Status),
			DetailLabelStyle.Render("Uptime")+DetailValueStyle.Render(fmt.Sprintf("%.0fs", st.Uptime)),
			DetailLabelStyle.Render("Registered")+DetailValueStyle.Render(fmt.Sprintf("%d agents, %d tools, %d workflows",
				st.RegisteredAgentsCount, st.RegisteredToolsCount, st.RegisteredWorkflowsCount)),
		)
	}
	return lines
}

func (m AppModel) renderSysItem(cfg resource.SystemConfig, it sysItem, selected bool) string {
	var label, value string
	switch it.kind {
	case sysItemLogLevel:
		label, value = "Log level", "‹ "+cfg.LogLevel+" ›"
	case sysItemCacheDir:
		label, value = "Cache dir", cfg.CacheDir
	case sysItemLLM:
		c := cfg.LLMConfigs[it.index]
		label = c.Name
		value = c.ModelName
		if c.BaseURL != "" {
			value += "  " + c.BaseURL
		}
		if c.APIKey != "" {
			value += "  key " + c.MaskedAPIKey()
		}
	case sysItemAddLLM:
		return m.cursorPrefix(selected) + DimStyle.Render("+ add LLM")
	case sysItemDatabase:
		d := cfg.DatabaseConfigs[it.index]
		label, value = d.Type, d.ConnectionString
	case sysItemAddDatabase:
		return m.cursorPrefix(selected) + DimStyle.Render("+ add database")
	case sysItemAdditional:
		label, value = it.key, formatAdditional(cfg.AdditionalConfig[it.key])
	case sysItemAddAdditional:
		return m.cursorPrefix(selected) + DimStyle.Render("+ add setting")
	}
	if value == "" {
		value = DimStyle.Render("-")
	}
	return m.cursorPrefix(selected) + DetailLabelStyle.Render(label) + DetailValueStyle.Render(value)
}

func (m AppModel) cursorPrefix(selected bool) string {
	if selected {
		return CursorStyle.Render("> ")
	}
	return "  "
}

func (m AppModel) systemInputLines(width int) []string {
	var label, hint string
	switch m.sysInput {
	case sysInputCacheDir:
		label, hint = "Cache directory", "enter: apply  esc: cancel"
	case sysInputLLM:
		label, hint = "New LLM", "name model [base_url] [api_key]"
	case sysInputDatabase:
		label, hint = "New database", "type [connection_string]"
	case sysInputAdditional:
		label, hint = "Setting", "key=value (JSON values are parsed, empty value removes)"
	case sysInputExport:
		label, hint = "Export format", "json, yaml or toml"
	}
	m.ensureTextInput("system-"+string(m.sysInput), m.sysInputText, 0)
	m.syncTextInput(m.sysInputText)
	return []string{
		SectionStyle.Render(label),
		"",
		DimStyle.Render(hint),
		"",
		m.viewTextInput(width - 4),
		"",
		DimStyle.Render("enter: confirm  esc: cancel"),
	}
}
