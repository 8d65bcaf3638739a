package console

import (
	"fmt"
	"strings"

	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// ActionID is a per-row operation.
type ActionID string

const (
	ActionEdit     ActionID = "edit"
	ActionTest     ActionID = "test"
	ActionRun      ActionID = "run"
	ActionValidate ActionID = "validate"
	ActionQuery    ActionID = "query"
	ActionStart    ActionID = "start"
	ActionStop     ActionID = "stop"
	ActionDelete   ActionID = "delete"
)

// actionKeys is the key each action is bound to on the selected row.
var actionKeys = map[ActionID]string{
	ActionEdit:     "e",
	ActionTest:     "x",
	ActionRun:      "x",
	ActionValidate: "v",
	ActionQuery:    "x",
	ActionStart:    "s",
	ActionStop:     "p",
	ActionDelete:   "d",
}

// Key returns the binding for a.
func (a ActionID) Key() string { return actionKeys[a] }

// ActionsFor lists the row actions of a kind.
func ActionsFor(kind resource.Kind) []ActionID {
	switch kind {
	case resource.KindAgent, resource.KindTool:
		return []ActionID{ActionEdit, ActionTest, ActionDelete}
	case resource.KindWorkflow:
		return []ActionID{ActionEdit, ActionRun, ActionValidate, ActionDelete}
	case resource.KindMAS:
		return []ActionID{ActionEdit, ActionQuery, ActionStart, ActionStop, ActionDelete}
	}
	return nil
}

// Column renders one cell of a record.
type Column[T resource.Record] struct {
	Title string
	Width int
	Value func(T) string
}

// Row is one rendered line. Placeholder rows carry no id and no actions.
type Row struct {
	ID          string
	Cells       []string
	Actions     []ActionID
	Placeholder bool

	bindings map[string]ActionID
}

// Invocation is an action resolved against a concrete row.
type Invocation struct {
	Action ActionID
	ID     string
}

// ListView projects a store through a filter. Every Render rebuilds all
// rows and their key bindings.
type ListView[T resource.Record] struct {
	kind    resource.Kind
	columns []Column[T]
	actions []ActionID
	filter  Filter
	rows    []Row
	cursor  int
}

func NewListView[T resource.Record](kind resource.Kind, columns []Column[T]) *ListView[T] {
	return &ListView[T]{kind: kind, columns: columns, actions: ActionsFor(kind)}
}

func (v *ListView[T]) Kind() resource.Kind { return v.kind }

func (v *ListView[T]) Filter() Filter { return v.filter }

// SetFilter replaces the filter. Call Render afterwards.
func (v *ListView[T]) SetFilter(f Filter) {
	v.filter = f
	v.cursor = 0
}

func (v *ListView[T]) Columns() []Column[T] { return v.columns }

// Titles returns the column headers.
func (v *ListView[T]) Titles() []string {
	out := make([]string, len(v.columns))
	for i, c := range v.columns {
		out[i] = c.Title
	}
	return out
}

// Widths returns the preferred column widths.
func (v *ListView[T]) Widths() []int {
	out := make([]int, len(v.columns))
	for i, c := range v.columns {
		out[i] = c.Width
	}
	return out
}

// Placeholder is the text shown when no record matches.
func (v *ListView[T]) Placeholder() string {
	return fmt.Sprintf("No %s found", v.kind.Plural())
}

// Render clears and rebuilds the rows from records.
func (v *ListView[T]) Render(records []T) []Row {
	matched := Apply(v.filter, records)
	rows := make([]Row, 0, max(len(matched), 1))
	for _, rec := range matched {
		cells := make([]string, len(v.columns))
		for i, c := range v.columns {
			cells[i] = c.Value(rec)
		}
		row := Row{
			ID:       rec.RecordID(),
			Cells:    cells,
			Actions:  append([]ActionID(nil), v.actions...),
			bindings: make(map[string]ActionID, len(v.actions)),
		}
		for _, a := range v.actions {
			row.bindings[a.Key()] = a
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		rows = append(rows, Row{Cells: []string{v.Placeholder()}, Placeholder: true})
	}
	v.rows = rows
	v.clamp()
	return rows
}

func (v *ListView[T]) Rows() []Row { return v.rows }

func (v *ListView[T]) clamp() {
	if v.cursor >= len(v.rows) {
		v.cursor = len(v.rows) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

func (v *ListView[T]) Cursor() int { return v.cursor }

// Move shifts the cursor by delta, clamped to the rows.
func (v *ListView[T]) Move(delta int) {
	v.cursor += delta
	v.clamp()
}

// Selected returns the row under the cursor.
func (v *ListView[T]) Selected() (Row, bool) {
	if v.cursor < 0 || v.cursor >= len(v.rows) || v.rows[v.cursor].Placeholder {
		return Row{}, false
	}
	return v.rows[v.cursor], true
}

// Trigger resolves key against the selected row's bindings.
func (v *ListView[T]) Trigger(key string) (Invocation, bool) {
	row, ok := v.Selected()
	if !ok {
		return Invocation{}, false
	}
	a, ok := row.bindings[key]
	if !ok {
		return Invocation{}, false
	}
	return Invocation{Action: a, ID: row.ID}, true
}

// Categories lists the values the category filter cycles through, with
// "" (all) first.
func Categories(kind resource.Kind) []string {
	out := []string{""}
	switch kind {
	case resource.KindAgent:
		for _, t := range resource.AgentTypes {
			out = append(out, string(t))
		}
	case resource.KindTool:
		for _, t := range resource.ToolTypes {
			out = append(out, string(t))
		}
	}
	return out
}

// NextCategory returns the category after cur, wrapping to "".
func NextCategory(kind resource.Kind, cur string) string {
	cats := Categories(kind)
	for i, c := range cats {
		if c == cur {
			return cats[(i+1)%len(cats)]
		}
	}
	return ""
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// AgentColumns renders agents; toolName resolves tool ids for display.
func AgentColumns(toolName func(id string) string) []Column[resource.Agent] {
	return []Column[resource.Agent]{
		{Title: "NAME", Width: 20, Value: func(a resource.Agent) string { return a.Name }},
		{Title: "TYPE", Width: 10, Value: func(a resource.Agent) string { return string(a.AgentType) }},
		{Title: "STATUS", Width: 9, Value: func(a resource.Agent) string { return string(a.Status) }},
		{Title: "MASTER", Width: 7, Value: func(a resource.Agent) string { return yesNo(a.IsMaster) }},
		{Title: "TOOLS", Width: 30, Value: func(a resource.Agent) string {
			names := make([]string, 0, len(a.Tools))
			for _, id := range a.Tools {
				names = append(names, toolName(id))
			}
			return strings.Join(names, ", ")
		}},
	}
}

func ToolColumns() []Column[resource.Tool] {
	return []Column[resource.Tool]{
		{Title: "NAME", Width: 20, Value: func(t resource.Tool) string { return t.Name }},
		{Title: "TYPE", Width: 14, Value: func(t resource.Tool) string { return t.ToolType.Label() }},
		{Title: "STATUS", Width: 9, Value: func(t resource.Tool) string { return string(t.Status) }},
		{Title: "DESCRIPTION", Width: 40, Value: func(t resource.Tool) string { return t.Description }},
	}
}

// WorkflowColumns resolves agent ids through agents at render time.
func WorkflowColumns(agents func() []resource.Agent) []Column[resource.Workflow] {
	return []Column[resource.Workflow]{
		{Title: "NAME", Width: 20, Value: func(w resource.Workflow) string { return w.Name }},
		{Title: "AGENTS", Width: 36, Value: func(w resource.Workflow) string {
			return strings.Join(resource.ResolveAgentNames(w.Agents, agents()), " → ")
		}},
		{Title: "STATUS", Width: 9, Value: func(w resource.Workflow) string { return string(w.Status) }},
		{Title: "DESCRIPTION", Width: 36, Value: func(w resource.Workflow) string { return w.Description }},
	}
}

// MASColumns renders multi-agent systems.
func MASColumns() []Column[resource.MAS] {
	return []Column[resource.MAS]{
		{Title: "NAME", Width: 20, Value: func(m resource.MAS) string { return m.Name }},
		{Title: "STATUS", Width: 9, Value: func(m resource.MAS) string { return string(m.Status) }},
		{Title: "COMPONENTS", Width: 11, Value: func(m resource.MAS) string { return fmt.Sprint(len(m.OxySpace)) }},
		{Title: "DESCRIPTION", Width: 40, Value: func(m resource.MAS) string { return m.Description }},
	}
}
