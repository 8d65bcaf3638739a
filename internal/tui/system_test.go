package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

func TestParseLLMLine(t *testing.T) {
	tests := []struct {
		in      string
		want    resource.LLMConfig
		wantErr bool
	}{
		{in: "backup gpt-x", want: resource.LLMConfig{Name: "backup", ModelName: "gpt-x"}},
		{in: "  backup gpt-x https://llm.local  sk-123 ", want: resource.LLMConfig{Name: "backup", ModelName: "gpt-x", BaseURL: "https://llm.local", APIKey: "sk-123"}},
		{in: "lonely", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLLMLine(tt.in)
			if tt.wantErr {
				if !console.IsInputError(err) {
					t.Fatalf("err = %v, want input error", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Name != tt.want.Name || got.ModelName != tt.want.ModelName || got.BaseURL != tt.want.BaseURL || got.APIKey != tt.want.APIKey {
				t.Fatalf("parseLLMLine(%q) = %+v", tt.in, got)
			}
		})
	}
}

func TestParseDatabaseLine(t *testing.T) {
	got, err := parseDatabaseLine("redis  redis://localhost:6379/0")
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != "redis" || got.ConnectionString != "redis://localhost:6379/0" {
		t.Fatalf("parseDatabaseLine = %+v", got)
	}
	if _, err := parseDatabaseLine("   "); !console.IsInputError(err) {
		t.Fatalf("empty line err = %v", err)
	}
}

func TestNextLogLevelWraps(t *testing.T) {
	tests := []struct {
		cur   string
		delta int
		want  string
	}{
		{"INFO", 1, "WARNING"},
		{"info", -1, "DEBUG"},
		{"CRITICAL", 1, "DEBUG"},
		{"DEBUG", -1, "CRITICAL"},
		{"bogus", 1, "DEBUG"},
	}
	for _, tt := range tests {
		if got := nextLogLevel(tt.cur, tt.delta); got != tt.want {
			t.Fatalf("nextLogLevel(%q, %d) = %q, want %q", tt.cur, tt.delta, got, tt.want)
		}
	}
}

func TestSystemScreenEditsAndSaves(t *testing.T) {
	ta := newTestApp(t)
	ta.press(runes("5"))
	sys := ta.m.console.System

	if view := ta.m.View(); !strings.Contains(view, "default_llm") || !strings.Contains(view, "elasticsearch") {
		t.Fatalf("system view:\n%s", view)
	}

	ta.pressRun(t, runes("s"))
	if n := ta.lastNotice(t); n.Message != "No changes to save" {
		t.Fatalf("notice = %+v", n)
	}

	ta.press(keyOf(tea.KeyRight))
	if got := sys.Draft().LogLevel; got != "WARNING" {
		t.Fatalf("log level = %q", got)
	}
	if !sys.Dirty() {
		t.Fatal("draft not dirty after edit")
	}

	ta.pressRun(t, runes("s"))
	if sys.Dirty() || sys.Saved().LogLevel != "WARNING" {
		t.Fatalf("after save: dirty=%v saved=%+v", sys.Dirty(), sys.Saved())
	}
	if n := ta.lastNotice(t); n.Message != "System configuration saved" {
		t.Fatalf("notice = %+v", n)
	}
}

func TestSystemInputAddsLLM(t *testing.T) {
	ta := newTestApp(t)
	ta.press(runes("5"))
	sys := ta.m.console.System

	items := systemItems(sys.Draft())
	for i, it := range items {
		if it.kind == sysItemAddLLM {
			ta.m.sysSel = i
		}
	}
	ta.press(keyOf(tea.KeyEnter))
	if ta.m.state != stateSystemInput || ta.m.sysInput != sysInputLLM {
		t.Fatalf("state=%d input=%q", ta.m.state, ta.m.sysInput)
	}

	ta.press(runes("solo"), keyOf(tea.KeyEnter))
	if ta.m.state != stateSystemInput {
		t.Fatal("malformed line closed the editor")
	}

	ta.m.sysInputText = "backup model-2"
	ta.press(keyOf(tea.KeyEnter))
	if ta.m.state != stateSystem {
		t.Fatalf("state = %d, want system", ta.m.state)
	}
	llms := sys.Draft().LLMConfigs
	if len(llms) != 2 || llms[1].Name != "backup" || llms[1].ModelName != "model-2" {
		t.Fatalf("llm configs = %+v", llms)
	}

	ta.m.sysSel = 2
	ta.press(runes("d"))
	if got := sys.Draft().LLMConfigs; len(got) != 1 || got[0].Name != "backup" {
		t.Fatalf("after delete = %+v", got)
	}

	ta.press(runes("u"))
	if sys.Dirty() {
		t.Fatal("discard left the draft dirty")
	}
}

func TestSystemExportShowsDocument(t *testing.T) {
	ta := newTestApp(t)
	ta.press(runes("5"))

	ta.press(runes("x"))
	if ta.m.state != stateSystemInput || ta.m.sysInputText != "json" {
		t.Fatalf("state=%d text=%q", ta.m.state, ta.m.sysInputText)
	}
	ta.m.sysInputText = "yaml"
	ta.pressRun(t, keyOf(tea.KeyEnter))
	if ta.m.state != stateResult {
		t.Fatalf("state = %d, want result", ta.m.state)
	}
	if !strings.Contains(ta.m.resultBody, "log_level: INFO") {
		t.Fatalf("export body:\n%s", ta.m.resultBody)
	}
	ta.press(keyOf(tea.KeyEsc))
	if ta.m.state != stateSystem {
		t.Fatalf("state = %d after closing export", ta.m.state)
	}
}

func TestSystemRestartConfirm(t *testing.T) {
	ta := newTestApp(t)
	ta.press(runes("5"))
	sys := ta.m.console.System

	ta.press(runes("R"))
	if ta.m.state != stateConfirmRestart || !sys.RestartPending() {
		t.Fatalf("state=%d pending=%v", ta.m.state, sys.RestartPending())
	}
	ta.press(runes("n"))
	if ta.m.state != stateSystem || sys.RestartPending() {
		t.Fatal("cancel did not clear the restart")
	}

	ta.press(runes("R"))
	ta.pressRun(t, runes("y"))
	if ta.m.state != stateSystem || sys.RestartPending() {
		t.Fatalf("after confirm: state=%d pending=%v", ta.m.state, sys.RestartPending())
	}
}
