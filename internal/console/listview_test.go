package console

import (
	"testing"

	"github.com/oxyadmin/oxyadmin/internal/resource"
)

func TestFilterResultsSatisfyBothPredicates(t *testing.T) {
	agents := resource.Demo().Agents
	queries := []string{"", "agent", "TIME", "file", "web", "nothing-matches"}
	categories := append([]string{}, Categories(resource.KindAgent)...)

	for _, q := range queries {
		for _, cat := range categories {
			f := Filter{Query: q, Category: cat}
			got := Apply(f, agents)
			if len(got) > len(agents) {
				t.Fatalf("filter %+v returned more records than the collection", f)
			}
			for _, a := range got {
				if !f.Matches(a) {
					t.Fatalf("filter %+v kept non-matching %s", f, a.Name)
				}
				if cat != "" && string(a.AgentType) != cat {
					t.Fatalf("filter %+v kept type %s", f, a.AgentType)
				}
			}
			for _, a := range agents {
				if f.Matches(a) && !containsID(got, a.ID) {
					t.Fatalf("filter %+v dropped matching %s", f, a.Name)
				}
			}
		}
	}
}

func containsID(records []resource.Agent, id string) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}

func TestFilterMatchesDescription(t *testing.T) {
	tool := resource.Tool{ID: "1", ToolSpec: resource.ToolSpec{Name: "t", ToolType: resource.ToolAPI, Description: "HTTP Search API"}}
	if !(Filter{Query: "search"}).Matches(tool) {
		t.Fatal("description match failed")
	}
	if (Filter{Query: "search", Category: "mcp"}).Matches(tool) {
		t.Fatal("category restriction ignored")
	}
}

func TestRowActionsPerKind(t *testing.T) {
	tests := []struct {
		kind resource.Kind
		want []ActionID
	}{
		{resource.KindAgent, []ActionID{ActionEdit, ActionTest, ActionDelete}},
		{resource.KindTool, []ActionID{ActionEdit, ActionTest, ActionDelete}},
		{resource.KindWorkflow, []ActionID{ActionEdit, ActionRun, ActionValidate, ActionDelete}},
	}
	for _, tt := range tests {
		got := ActionsFor(tt.kind)
		if len(got) != len(tt.want) {
			t.Fatalf("%s actions = %v, want %v", tt.kind, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("%s actions = %v, want %v", tt.kind, got, tt.want)
			}
		}
	}
}

func TestRenderRebindsAndClampsCursor(t *testing.T) {
	v := NewListView(resource.KindWorkflow, WorkflowColumns(func() []resource.Agent { return nil }))
	workflows := resource.Demo().Workflows

	v.Render(workflows)
	v.Move(5)
	if v.Cursor() != 1 {
		t.Fatalf("cursor = %d, want clamped to 1", v.Cursor())
	}
	inv, ok := v.Trigger("v")
	if !ok || inv.Action != ActionValidate || inv.ID != "2" {
		t.Fatalf("Trigger(v) = %+v, %v", inv, ok)
	}

	v.Render(workflows[:1])
	if v.Cursor() != 0 {
		t.Fatalf("cursor after shrink = %d", v.Cursor())
	}
	inv, ok = v.Trigger("x")
	if !ok || inv.Action != ActionRun || inv.ID != "1" {
		t.Fatalf("Trigger(x) = %+v, %v", inv, ok)
	}
	if v.Rows()[0].Cells[1] != "Unknown Agent (2) → Unknown Agent (3)" {
		t.Fatalf("agents cell = %q", v.Rows()[0].Cells[1])
	}
	if _, ok := v.Trigger("q"); ok {
		t.Fatal("unbound key triggered an action")
	}
}

func TestNextCategoryCycles(t *testing.T) {
	got := []string{}
	cur := ""
	for range len(resource.ToolTypes) + 1 {
		cur = NextCategory(resource.KindTool, cur)
		got = append(got, cur)
	}
	want := []string{"function", "mcp", "api", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cycle = %v, want %v", got, want)
		}
	}
	if NextCategory(resource.KindWorkflow, "") != "" {
		t.Fatal("workflows have no categories")
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		mode    InputMode
		input   string
		want    string
		wantErr bool
	}{
		{name: "free text", mode: InputFreeForm, input: "hello", want: `map[query:hello]`},
		{name: "free json object", mode: InputFreeForm, input: `{"a":1}`, want: `map[a:1]`},
		{name: "free broken json", mode: InputFreeForm, input: `{"a":`, wantErr: true},
		{name: "object wrapped", mode: InputJSONObject, input: `{"a":1}`, want: `map[input_data:map[a:1]]`},
		{name: "empty object input", mode: InputJSONObject, input: "  ", want: `map[input_data:map[]]`},
		{name: "array rejected", mode: InputJSONObject, input: `[1]`, wantErr: true},
		{name: "plain text rejected", mode: InputJSONObject, input: "not-json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInput(tt.mode, tt.input)
			if tt.wantErr {
				if !IsInputError(err) {
					t.Fatalf("ParseInput() error = %v, want input error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInput: %v", err)
			}
			if s := fmtMap(got); s != tt.want {
				t.Fatalf("ParseInput() = %s, want %s", s, tt.want)
			}
		})
	}
}
