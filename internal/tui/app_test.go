package tui

import (
	"net/http"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

func rowNames(rows []console.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if len(r.Cells) > 0 {
			out = append(out, r.Cells[0])
		}
	}
	return out
}

func TestListShowsLoadedRecordsAndSwitchesKinds(t *testing.T) {
	ta := newTestApp(t)

	ctrl := ta.m.controller()
	if !ctrl.Loaded() || len(ctrl.Rows()) != 4 {
		t.Fatalf("agents loaded=%v rows=%v", ctrl.Loaded(), rowNames(ctrl.Rows()))
	}
	if view := ta.m.View(); !strings.Contains(view, "master_agent") {
		t.Fatalf("view missing agent row:\n%s", view)
	}

	ta.press(runes("j"))
	if ctrl.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", ctrl.Cursor())
	}

	ta.press(runes("2"))
	if ta.m.kind != resource.KindTool || ta.m.state != stateList {
		t.Fatalf("kind=%s state=%d after '2'", ta.m.kind, ta.m.state)
	}
	if view := ta.m.View(); !strings.Contains(view, "time_tools") {
		t.Fatalf("view missing tool row:\n%s", view)
	}

	ta.press(runes("5"))
	if ta.m.state != stateSystem {
		t.Fatalf("state = %d, want system", ta.m.state)
	}
	ta.press(keyOf(tea.KeyTab))
	if ta.m.kind != resource.KindAgent || ta.m.state != stateList {
		t.Fatalf("tab from system: kind=%s state=%d", ta.m.kind, ta.m.state)
	}
	ta.press(keyOf(tea.KeyShiftTab))
	if ta.m.kind != resource.KindSystem {
		t.Fatalf("shift+tab from agents: kind=%s", ta.m.kind)
	}
}

func TestSearchFiltersAsYouType(t *testing.T) {
	ta := newTestApp(t)
	ctrl := ta.m.controller()

	ta.press(runes("/"))
	if ta.m.state != stateSearch {
		t.Fatalf("state = %d, want search", ta.m.state)
	}
	ta.press(runes("file"))
	if got := rowNames(ctrl.Rows()); len(got) != 1 || got[0] != "file_agent" {
		t.Fatalf("rows = %v", got)
	}

	ta.press(keyOf(tea.KeyEnter))
	if ta.m.state != stateList || ctrl.Filter().Query != "file" {
		t.Fatalf("after enter: state=%d filter=%+v", ta.m.state, ctrl.Filter())
	}

	ta.press(keyOf(tea.KeyEsc))
	if !ctrl.Filter().IsZero() || len(ctrl.Rows()) != 4 {
		t.Fatalf("esc did not clear the filter: %+v", ctrl.Filter())
	}
}

func TestTypeFilterCycles(t *testing.T) {
	ta := newTestApp(t)
	ctrl := ta.m.controller()

	tests := []struct {
		category string
		rows     int
	}{
		{"react", 3},
		{"chat", 1},
		{"workflow", 0},
	}
	for _, tt := range tests {
		ta.press(runes("t"))
		if got := ctrl.Filter().Category; got != tt.category {
			t.Fatalf("category = %q, want %q", got, tt.category)
		}
		n := 0
		for _, r := range ctrl.Rows() {
			if !r.Placeholder {
				n++
			}
		}
		if n != tt.rows {
			t.Fatalf("category %q: %d rows, want %d", tt.category, n, tt.rows)
		}
	}
}

func TestCreateAgentThroughForm(t *testing.T) {
	ta := newTestApp(t)

	ta.pressRun(t, runes("n"))
	if ta.m.state != stateForm {
		t.Fatalf("state = %d, want form", ta.m.state)
	}
	ctrl := ta.m.controller()
	if ctrl.SessionState() != console.Creating {
		t.Fatalf("session = %v", ctrl.SessionState())
	}

	ta.press(runes("writer"))
	if got := ctrl.Form().Value(console.FieldName); got != "writer" {
		t.Fatalf("name field = %q", got)
	}

	ta.pressRun(t, keyOf(tea.KeyCtrlS))
	if ta.m.state != stateList {
		t.Fatalf("state after commit = %d, want list", ta.m.state)
	}
	names := rowNames(ctrl.Rows())
	if len(names) != 5 || !strings.Contains(strings.Join(names, ","), "writer") {
		t.Fatalf("rows after create = %v", names)
	}
}

func TestCommitWithoutNameFocusesField(t *testing.T) {
	ta := newTestApp(t)

	ta.pressRun(t, runes("n"))
	ta.press(keyOf(tea.KeyTab), keyOf(tea.KeyTab))
	if ta.m.formSel != 2 {
		t.Fatalf("formSel = %d, want 2", ta.m.formSel)
	}

	ta.pressRun(t, keyOf(tea.KeyCtrlS))
	if ta.m.state != stateForm {
		t.Fatalf("state = %d, want form to stay open", ta.m.state)
	}
	if ta.m.formSel != 0 {
		t.Fatalf("formSel = %d, want the name field", ta.m.formSel)
	}
	if n := ta.lastNotice(t); n.Severity != notify.SeverityWarning {
		t.Fatalf("notice = %+v", n)
	}

	ta.press(keyOf(tea.KeyEsc))
	if ta.m.state != stateList || ta.m.controller().SessionState() != console.Idle {
		t.Fatalf("esc: state=%d session=%v", ta.m.state, ta.m.controller().SessionState())
	}
}

func TestPromptRejectsInvalidJSONThenShowsResult(t *testing.T) {
	ta := newTestApp(t)
	ta.press(runes("2"))

	ta.press(runes("x"))
	if ta.m.state != statePrompt || ta.m.promptID != "1" {
		t.Fatalf("state=%d promptID=%q", ta.m.state, ta.m.promptID)
	}

	ta.press(runes("{bad"))
	ta.pressRun(t, keyOf(tea.KeyCtrlS))
	if ta.m.state != statePrompt {
		t.Fatalf("invalid JSON left the prompt: state=%d", ta.m.state)
	}
	if n := ta.lastNotice(t); n.Severity != notify.SeverityWarning || !strings.Contains(n.Message, "Invalid JSON") {
		t.Fatalf("notice = %+v", n)
	}

	ta.m.promptText = `{"timezone": "UTC"}`
	ta.pressRun(t, keyOf(tea.KeyCtrlS))
	if ta.m.state != stateResult {
		t.Fatalf("state = %d, want result", ta.m.state)
	}
	if ta.m.resultTitle != "Tool 1: test result" || !strings.Contains(ta.m.resultBody, "execution_time") {
		t.Fatalf("result %q:\n%s", ta.m.resultTitle, ta.m.resultBody)
	}

	ta.press(keyOf(tea.KeyEsc))
	if ta.m.state != stateList {
		t.Fatalf("state = %d after closing result", ta.m.state)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	ta := newTestApp(t)
	ctrl := ta.m.controller()

	ta.press(runes("d"))
	if ta.m.state != stateConfirmDelete || ctrl.PendingDelete() != "1" {
		t.Fatalf("state=%d pending=%q", ta.m.state, ctrl.PendingDelete())
	}
	if view := ta.m.View(); !strings.Contains(view, "master_agent") {
		t.Fatalf("confirm view does not name the record:\n%s", view)
	}
	ta.press(runes("n"))
	if ta.m.state != stateList || ctrl.PendingDelete() != "" || len(ctrl.Rows()) != 4 {
		t.Fatalf("cancel: state=%d pending=%q rows=%d", ta.m.state, ctrl.PendingDelete(), len(ctrl.Rows()))
	}

	ta.press(runes("d"))
	ta.pressRun(t, runes("y"))
	if names := rowNames(ctrl.Rows()); len(names) != 3 || names[0] == "master_agent" {
		t.Fatalf("rows after delete = %v", names)
	}
}

func TestValidateWorkflowReportsVerdict(t *testing.T) {
	ta := newTestApp(t)
	ta.press(runes("3"))

	ta.pressRun(t, runes("v"))
	if n := ta.lastNotice(t); n.Severity != notify.SeveritySuccess {
		t.Fatalf("notice = %+v", n)
	}
}

func TestLiveEventsReloadTheKind(t *testing.T) {
	ta := newTestApp(t)

	req, err := http.NewRequest(http.MethodDelete, ta.m.backend+"/api/v1/agents/4", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	model, cmd := ta.m.Update(liveEventMsg{Event: livefeed.Event{Type: livefeed.TypeDeleted, Kind: resource.KindAgent, ID: "4"}})
	ta.m = model.(AppModel)
	ta.settle(t, cmd)
	if got := rowNames(ta.m.controller().Rows()); len(got) != 3 {
		t.Fatalf("rows after live event = %v", got)
	}

	model, _ = ta.m.Update(liveClosedMsg{})
	ta.m = model.(AppModel)
	if n := ta.lastNotice(t); n.Message != "Live updates disconnected" || ta.m.live != nil {
		t.Fatalf("notice = %+v", n)
	}
}

func TestCycleChoice(t *testing.T) {
	form := console.NewMapForm()
	form.SetOptions("model", []console.Option{{Value: "a"}, {Value: "b"}})

	required := console.FieldSpec{ID: "model", Required: true}
	for _, want := range []string{"a", "b", "a"} {
		cycleChoice(form, required, 1)
		if got := form.Value("model"); got != want {
			t.Fatalf("required cycle = %q, want %q", got, want)
		}
	}

	optional := console.FieldSpec{ID: "model"}
	form.Set("model", "b")
	cycleChoice(form, optional, 1)
	if got := form.Value("model"); got != "" {
		t.Fatalf("optional wrap = %q, want empty", got)
	}
	cycleChoice(form, optional, -1)
	if got := form.Value("model"); got != "b" {
		t.Fatalf("optional back = %q, want b", got)
	}
}

func TestRenderCellsTruncates(t *testing.T) {
	got := renderCells([]string{"abcdefghij", "ok"}, []int{5, 4}, lipgloss.NewStyle())
	if !strings.Contains(got, "abcd…") {
		t.Fatalf("renderCells = %q", got)
	}
	if w := lipgloss.Width(got); w != 10 {
		t.Fatalf("width = %d, want 10", w)
	}
}

func TestFitLinesPadsAndClips(t *testing.T) {
	out := fitLines([]string{"hello world", "x"}, 5, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d", len(lines))
	}
	if lines[0] != "hello" || lines[1] != "x    " || lines[2] != "     " {
		t.Fatalf("fitLines = %q", lines)
	}
}

func TestMASStartThenQuery(t *testing.T) {
	ta := newTestApp(t)
	ta.press(runes("4"))
	if ta.m.kind != resource.KindMAS || ta.m.state != stateList {
		t.Fatalf("kind=%s state=%d after '4'", ta.m.kind, ta.m.state)
	}
	if view := ta.m.View(); !strings.Contains(view, "research_desk") {
		t.Fatalf("view missing mas rows:\n%s", view)
	}

	ta.press(runes("j"))
	ta.press(runes("x"))
	ta.m.promptText = "hello"
	ta.pressRun(t, keyOf(tea.KeyCtrlS))
	if n := ta.lastNotice(t); n.Severity != notify.SeverityError || !strings.Contains(n.Message, "is not active") {
		t.Fatalf("query while stopped: notice = %+v", n)
	}

	ta.pressRun(t, runes("s"))
	if n := ta.lastNotice(t); n.Message != "MAS 2 started" {
		t.Fatalf("notice = %+v", n)
	}
	if row, _ := ta.m.controller().Selected(); row.ID != "2" || row.Cells[1] != "active" {
		t.Fatalf("selected row = %+v", row)
	}

	ta.press(runes("x"))
	ta.m.promptText = "hello"
	ta.pressRun(t, keyOf(tea.KeyCtrlS))
	if ta.m.state != stateResult || ta.m.resultTitle != "MAS 2: query result" || !strings.Contains(ta.m.resultBody, "execution_time") {
		t.Fatalf("state=%d result %q:\n%s", ta.m.state, ta.m.resultTitle, ta.m.resultBody)
	}
	ta.press(keyOf(tea.KeyEsc))

	ta.pressRun(t, runes("p"))
	if row, _ := ta.m.controller().Selected(); row.Cells[1] != "inactive" {
		t.Fatalf("row after stop = %+v", row)
	}
}
