package tui

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/livefeed"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// appState tracks which screen is active.
type appState int

const (
	stateList appState = iota
	stateSearch
	stateForm
	statePrompt
	stateConfirmDelete
	stateResult
	stateSystem
	stateSystemInput
	stateConfirmRestart
)

// Options configures NewApp.
type Options struct {
	// Backend is the base URL shown in the header.
	Backend string
	// Live, when set, delivers backend change events.
	Live <-chan livefeed.Event
}

// liveEventMsg carries one change event from the live feed.
type liveEventMsg struct{ Event livefeed.Event }

// liveClosedMsg reports that the live feed went away.
type liveClosedMsg struct{}

// AppModel is the top-level bubbletea model.
type AppModel struct {
	console *console.Console
	notices *notify.Center
	keys    ViewKeyMap
	backend string
	live    <-chan livefeed.Event

	state  appState
	kind   resource.Kind
	width  int
	height int

	textInput    textinput.Model
	textInputKey string
	textArea     textarea.Model
	textAreaKey  string
	viewScroll   map[appState]int

	searchText string

	formSel   int
	optionSel int

	promptID   string
	promptText string

	resultTitle  string
	resultBody   string
	resultReturn appState

	sysSel       int
	sysInput     sysInput
	sysInputText string

	// lastScheduled is the newest notice id with an expiry tick queued.
	lastScheduled int
}

// NewApp builds the model over an already configured console. notices is
// the center the console reports to.
func NewApp(c *console.Console, notices *notify.Center, opts Options) AppModel {
	return AppModel{
		console:    c,
		notices:    notices,
		keys:       DefaultKeyMap(),
		backend:    opts.Backend,
		live:       opts.Live,
		state:      stateList,
		kind:       resource.KindAgent,
		viewScroll: map[appState]int{},
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("oxyadmin"), m.console.ReloadAll(), waitForLive(m.live))
}

func waitForLive(ch <-chan livefeed.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return liveClosedMsg{}
		}
		return liveEventMsg{Event: ev}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	prev := m.state
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case notify.ExpiredMsg:
		return m, nil
	case liveEventMsg:
		debug.LogKV("tui", "live event", "type", msg.Event.Type, "kind", msg.Event.Kind, "id", msg.Event.ID)
		cmd = tea.Batch(m.console.Reload(msg.Event.Kind), waitForLive(m.live))
	case liveClosedMsg:
		m.live = nil
		m.console.Notifier.Notify("Live updates disconnected", notify.SeverityWarning)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		model, c := m.updateByState(msg)
		m = model.(AppModel)
		cmd = c
	default:
		c, handled := m.console.Update(msg)
		if handled {
			m.afterConsole(msg)
			cmd = c
		} else {
			model, c := m.updateByState(msg)
			m = model.(AppModel)
			cmd = c
		}
	}

	m.syncScrollState(prev)
	if m.state != prev {
		cmd = tea.Batch(cmd, m.initInputEditorForState())
	}
	return m, tea.Batch(cmd, m.scheduleNotices())
}

// scheduleNotices queues an expiry tick for every notice posted since the
// last call.
func (m *AppModel) scheduleNotices() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	var cmds []tea.Cmd
	for _, n := range m.notices.Active(time.Now()) {
		if n.ID <= m.lastScheduled {
			continue
		}
		m.lastScheduled = n.ID
		cmds = append(cmds, notify.ExpireCmd(n))
	}
	return tea.Batch(cmds...)
}

// afterConsole moves between screens once a controller has applied msg.
func (m *AppModel) afterConsole(msg tea.Msg) {
	switch msg := msg.(type) {
	case console.ResultMsg:
		if msg.Err == nil {
			m.showResult(fmt.Sprintf("%s %s: %s result", msg.Kind.Title(), msg.ID, msg.Verb), msg.Pretty())
		}
	case console.ExportedMsg:
		if msg.Err == nil {
			m.showResult(fmt.Sprintf("Exported configuration (%s)", msg.Format), string(msg.Data))
		}
	}
	if m.state == stateForm {
		ctrl := m.controller()
		if ctrl == nil || (ctrl.SessionState() == console.Idle && !ctrl.SessionBusy()) {
			m.state = stateList
			return
		}
		// A populated form replaces whatever the inputs were showing.
		m.resetInputEditors()
	}
}

func (m *AppModel) showResult(title, body string) {
	if m.state != stateList && m.state != stateSystem {
		return
	}
	m.resultTitle = title
	m.resultBody = body
	m.resultReturn = m.state
	m.state = stateResult
}

func (m AppModel) controller() console.Controller {
	return m.console.Controller(m.kind)
}

func (m AppModel) updateByState(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateSearch:
		return m.updateSearch(msg)
	case stateForm:
		return m.updateForm(msg)
	case statePrompt:
		return m.updatePrompt(msg)
	case stateConfirmDelete:
		return m.updateConfirmDelete(msg)
	case stateResult:
		return m.updateResult(msg)
	case stateSystem:
		return m.updateSystem(msg)
	case stateSystemInput:
		return m.updateSystemInput(msg)
	case stateConfirmRestart:
		return m.updateConfirmRestart(msg)
	default:
		return m.updateList(msg)
	}
}

func (m *AppModel) switchKind(kind resource.Kind) {
	m.kind = kind
	if kind == resource.KindSystem {
		m.state = stateSystem
		return
	}
	m.state = stateList
}

func (m *AppModel) cycleKind(delta int) {
	i := 0
	for j, k := range resource.Kinds {
		if k == m.kind {
			i = j
		}
	}
	n := len(resource.Kinds)
	m.switchKind(resource.Kinds[(i+delta+n)%n])
}

// handleNavKey applies the keys shared by the list and system screens.
func (m *AppModel) handleNavKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Tab):
		m.cycleKind(1)
	case key.Matches(msg, m.keys.ShiftTab):
		m.cycleKind(-1)
	case key.Matches(msg, m.keys.Agents):
		m.switchKind(resource.KindAgent)
	case key.Matches(msg, m.keys.Tools):
		m.switchKind(resource.KindTool)
	case key.Matches(msg, m.keys.Workflows):
		m.switchKind(resource.KindWorkflow)
	case key.Matches(msg, m.keys.MAS):
		m.switchKind(resource.KindMAS)
	case key.Matches(msg, m.keys.System):
		m.switchKind(resource.KindSystem)
	default:
		return nil, false
	}
	return nil, true
}

func (m AppModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if cmd, ok := m.handleNavKey(keyMsg); ok {
		return m, cmd
	}
	ctrl := m.controller()
	if ctrl == nil {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Up):
		ctrl.Move(-1)
	case key.Matches(keyMsg, m.keys.Down):
		ctrl.Move(1)
	case key.Matches(keyMsg, m.keys.Search):
		m.searchText = ctrl.Filter().Query
		m.state = stateSearch
	case key.Matches(keyMsg, m.keys.CycleType):
		f := ctrl.Filter()
		f.Category = console.NextCategory(m.kind, f.Category)
		ctrl.SetFilter(f)
	case key.Matches(keyMsg, m.keys.Escape):
		if !ctrl.Filter().IsZero() {
			ctrl.SetFilter(console.Filter{})
		}
	case key.Matches(keyMsg, m.keys.New):
		return m.openForm(ctrl.OpenCreate())
	case key.Matches(keyMsg, m.keys.Reload):
		return m, ctrl.Reload()
	case key.Matches(keyMsg, m.keys.Enter):
		if row, ok := ctrl.Selected(); ok {
			return m.invoke(console.Invocation{Action: console.ActionEdit, ID: row.ID})
		}
	default:
		if inv, ok := ctrl.Trigger(keyMsg.String()); ok {
			return m.invoke(inv)
		}
	}
	return m, nil
}

func (m AppModel) invoke(inv console.Invocation) (tea.Model, tea.Cmd) {
	ctrl := m.controller()
	switch inv.Action {
	case console.ActionEdit:
		return m.openForm(ctrl.OpenEdit(inv.ID))
	case console.ActionTest, console.ActionRun, console.ActionQuery:
		m.promptID = inv.ID
		m.promptText = ""
		m.state = statePrompt
	case console.ActionValidate:
		return m, ctrl.Validate(inv.ID)
	case console.ActionStart, console.ActionStop:
		return m, ctrl.SetRunning(inv.ID, inv.Action == console.ActionStart)
	case console.ActionDelete:
		ctrl.RequestDelete(inv.ID)
		m.state = stateConfirmDelete
	}
	return m, nil
}

func (m AppModel) openForm(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.formSel = 0
	m.optionSel = 0
	m.resetInputEditors()
	m.state = stateForm
	return m, cmd
}

func (m *AppModel) applySearch() {
	ctrl := m.controller()
	if ctrl == nil {
		return
	}
	f := ctrl.Filter()
	f.Query = m.searchText
	ctrl.SetFilter(f)
}

func (m AppModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	initCmd := m.ensureTextInput("search", m.searchText, 0)
	m.syncTextInput(m.searchText)
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			m.state = stateList
			return m, nil
		case tea.KeyEsc:
			m.searchText = ""
			m.applySearch()
			m.state = stateList
			return m, nil
		}
	}
	cmd := m.updateTextInput(msg)
	if v := m.textInput.Value(); v != m.searchText {
		m.searchText = v
		m.applySearch()
	}
	return m, tea.Batch(initCmd, cmd)
}

func formFieldKey(kind resource.Kind, field string) string {
	return "form-" + string(kind) + "-" + field
}

func (m AppModel) focusedField() (console.FieldSpec, bool) {
	ctrl := m.controller()
	if ctrl == nil {
		return console.FieldSpec{}, false
	}
	fields := ctrl.Fields()
	if len(fields) == 0 {
		return console.FieldSpec{}, false
	}
	sel := m.formSel
	if sel < 0 || sel >= len(fields) {
		sel = 0
	}
	return fields[sel], true
}

func (m *AppModel) moveField(delta int) {
	n := len(m.controller().Fields())
	if n == 0 {
		return
	}
	m.formSel = (m.formSel + delta + n) % n
	m.optionSel = 0
}

func (m *AppModel) focusField(id string) {
	for i, f := range m.controller().Fields() {
		if f.ID == id {
			m.formSel = i
			m.optionSel = 0
			return
		}
	}
}

func (m AppModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctrl := m.controller()
	if ctrl == nil {
		m.state = stateList
		return m, nil
	}
	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey {
		switch {
		case key.Matches(keyMsg, m.keys.Escape):
			ctrl.Cancel()
			m.state = stateList
			return m, nil
		case key.Matches(keyMsg, m.keys.Save):
			return m.commitForm()
		}
	}
	if ctrl.SessionState() == console.Idle {
		return m, nil
	}
	spec, ok := m.focusedField()
	if !ok {
		return m, nil
	}

	if isKey {
		switch keyMsg.String() {
		case "tab":
			m.moveField(1)
			return m, nil
		case "shift+tab":
			m.moveField(-1)
			return m, nil
		case "up", "down":
			if spec.Kind != console.FieldMultiline {
				if keyMsg.String() == "up" {
					m.moveField(-1)
				} else {
					m.moveField(1)
				}
				return m, nil
			}
		}
	}

	form := ctrl.Form()
	switch spec.Kind {
	case console.FieldText:
		limit := 0
		if spec.ID == console.FieldTimeout {
			limit = 6
		}
		initCmd := m.ensureTextInput(formFieldKey(m.kind, spec.ID), form.Value(spec.ID), limit)
		m.syncTextInput(form.Value(spec.ID))
		if isKey && keyMsg.Type == tea.KeyEnter {
			m.moveField(1)
			return m, initCmd
		}
		if spec.ID == console.FieldTimeout {
			var keep bool
			if msg, keep = sanitizeDigitsMsg(msg); !keep {
				return m, initCmd
			}
		}
		cmd := m.updateTextInput(msg)
		form.Set(spec.ID, m.textInput.Value())
		return m, tea.Batch(initCmd, cmd)

	case console.FieldMultiline:
		initCmd := m.ensureTextarea(formFieldKey(m.kind, spec.ID), form.Value(spec.ID))
		m.syncTextarea(form.Value(spec.ID))
		cmd := m.updateTextarea(msg)
		form.Set(spec.ID, m.textArea.Value())
		return m, tea.Batch(initCmd, cmd)
	}

	if !isKey {
		return m, nil
	}
	switch spec.Kind {
	case console.FieldBool:
		if key.Matches(keyMsg, m.keys.Toggle, m.keys.Enter, m.keys.Left, m.keys.Right) {
			on, _ := strconv.ParseBool(form.Value(spec.ID))
			form.Set(spec.ID, strconv.FormatBool(!on))
		}
	case console.FieldChoice:
		switch {
		case key.Matches(keyMsg, m.keys.Left):
			cycleChoice(form, spec, -1)
		case key.Matches(keyMsg, m.keys.Right, m.keys.Toggle):
			cycleChoice(form, spec, 1)
		case key.Matches(keyMsg, m.keys.Enter):
			m.moveField(1)
		}
	case console.FieldMulti:
		opts := form.Options(spec.ID)
		switch {
		case key.Matches(keyMsg, m.keys.Left):
			if m.optionSel > 0 {
				m.optionSel--
			}
		case key.Matches(keyMsg, m.keys.Right):
			if m.optionSel < len(opts)-1 {
				m.optionSel++
			}
		case key.Matches(keyMsg, m.keys.Toggle, m.keys.Enter):
			if m.optionSel < len(opts) {
				console.Toggle(form, spec.ID, opts[m.optionSel].Value)
			}
		}
	}
	return m, nil
}

// cycleChoice steps a choice field through its options. Optional fields
// include the empty value.
func cycleChoice(form console.Form, spec console.FieldSpec, delta int) {
	values := []string{}
	if !spec.Required {
		values = append(values, "")
	}
	for _, o := range form.Options(spec.ID) {
		values = append(values, o.Value)
	}
	if len(values) == 0 {
		return
	}
	cur := form.Value(spec.ID)
	i := -1
	for j, v := range values {
		if v == cur {
			i = j
		}
	}
	n := len(values)
	if i < 0 {
		i = 0
		if delta < 0 {
			i = n - 1
		}
	} else {
		i = (i + delta + n) % n
	}
	form.Set(spec.ID, values[i])
}

func (m AppModel) commitForm() (tea.Model, tea.Cmd) {
	cmd, err := m.controller().Commit()
	if err != nil {
		var inErr *console.InputError
		if errors.As(err, &inErr) {
			m.focusField(inErr.Field)
			m.resetInputEditors()
		}
		return m, nil
	}
	return m, cmd
}

func (m AppModel) updatePrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctrl := m.controller()
	if ctrl == nil {
		m.state = stateList
		return m, nil
	}
	initCmd := m.ensureTextarea("prompt-"+string(m.kind)+"-"+m.promptID, m.promptText)
	m.syncTextarea(m.promptText)
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Escape):
			m.state = stateList
			return m, nil
		case key.Matches(keyMsg, m.keys.Save):
			cmd, err := ctrl.Invoke(m.promptID, m.promptText)
			if err != nil {
				return m, initCmd
			}
			m.state = stateList
			return m, cmd
		}
	}
	cmd := m.updateTextarea(msg)
	m.promptText = m.textArea.Value()
	return m, tea.Batch(initCmd, cmd)
}

func (m AppModel) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	ctrl := m.controller()
	switch keyMsg.String() {
	case "y", "Y", "enter":
		m.state = stateList
		return m, ctrl.ConfirmDelete()
	case "n", "N", "esc", "q":
		ctrl.CancelDelete()
		m.state = stateList
	}
	return m, nil
}

func (m AppModel) updateResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.handleGlobalScrollKey(keyMsg) {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Escape, m.keys.Enter, m.keys.Quit):
		m.state = m.resultReturn
	case key.Matches(keyMsg, m.keys.Down):
		m.adjustStateScroll(1)
	case key.Matches(keyMsg, m.keys.Up):
		m.adjustStateScroll(-1)
	}
	return m, nil
}
