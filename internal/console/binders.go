package console

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// Reference names a list of options loaded fresh whenever a session opens.
type Reference string

const (
	RefTools  Reference = "tools"
	RefAgents Reference = "agents"
	RefModels Reference = "models"
)

// Binder moves one kind's records in and out of a Form.
type Binder[T resource.Record, S any] interface {
	Fields() []FieldSpec
	// References maps option-backed fields to the list that feeds them.
	References() map[string]Reference
	StaticOptions() map[string][]Option
	Populate(f Form, rec T)
	// Assemble reads the form on top of base, keeping fields the form
	// does not show.
	Assemble(f Form, base S) (S, error)
	SpecOf(rec T) S
	Empty() S
}

func requiredName(f Form) (string, error) {
	name := strings.TrimSpace(f.Value(FieldName))
	if name == "" {
		return "", &InputError{Field: FieldName, Message: "Name is required"}
	}
	return name, nil
}

// parseTimeout turns blank into nil and anything else into whole seconds.
func parseTimeout(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil, &InputError{Field: FieldTimeout, Message: "Timeout must be a whole number of seconds"}
	}
	return &v, nil
}

// AgentBinder edits agents.
type AgentBinder struct{}

func (AgentBinder) Fields() []FieldSpec {
	return []FieldSpec{
		{ID: FieldName, Label: "Name", Kind: FieldText, Required: true},
		{ID: FieldType, Label: "Type", Kind: FieldChoice, Required: true},
		{ID: FieldDescription, Label: "Description", Kind: FieldText},
		{ID: FieldIsMaster, Label: "Master agent", Kind: FieldBool},
		{ID: FieldTools, Label: "Tools", Kind: FieldMulti},
		{ID: FieldSubAgents, Label: "Sub-agents", Kind: FieldMulti, Ordered: true},
		{ID: FieldModel, Label: "LLM model", Kind: FieldChoice},
		{ID: FieldPrompt, Label: "Additional prompt", Kind: FieldMultiline},
		{ID: FieldTimeout, Label: "Timeout (s)", Kind: FieldText},
		{ID: FieldTrustMode, Label: "Trust mode", Kind: FieldBool},
	}
}

func (AgentBinder) References() map[string]Reference {
	return map[string]Reference{FieldTools: RefTools, FieldSubAgents: RefAgents, FieldModel: RefModels}
}

func (AgentBinder) StaticOptions() map[string][]Option {
	opts := make([]Option, 0, len(resource.AgentTypes))
	for _, t := range resource.AgentTypes {
		opts = append(opts, Option{Value: string(t), Label: string(t)})
	}
	return map[string][]Option{FieldType: opts}
}

func (AgentBinder) Populate(f Form, a resource.Agent) {
	f.Set(FieldName, a.Name)
	f.Set(FieldType, string(a.AgentType))
	f.Set(FieldDescription, a.Description)
	f.Set(FieldIsMaster, boolString(a.IsMaster))
	f.Set(FieldModel, a.LLMModel)
	f.Set(FieldPrompt, a.AdditionalPrompt)
	f.Set(FieldTrustMode, boolString(a.TrustMode))
	if a.Timeout != nil {
		f.Set(FieldTimeout, strconv.Itoa(*a.Timeout))
	} else {
		f.Set(FieldTimeout, "")
	}
	f.Select(FieldTools, a.Tools)
	f.Select(FieldSubAgents, resource.Without(a.SubAgents, a.ID))
}

func (AgentBinder) Assemble(f Form, base resource.AgentSpec) (resource.AgentSpec, error) {
	name, err := requiredName(f)
	if err != nil {
		return base, err
	}
	agentType, err := resource.ParseAgentType(f.Value(FieldType))
	if err != nil {
		return base, &InputError{Field: FieldType, Message: "Agent type is required"}
	}
	timeout, err := parseTimeout(f.Value(FieldTimeout))
	if err != nil {
		return base, err
	}

	spec := base
	spec.Name = name
	spec.AgentType = agentType
	spec.Description = f.Value(FieldDescription)
	spec.IsMaster = formBool(f, FieldIsMaster)
	spec.Tools = resource.Dedupe(f.Selected(FieldTools))
	spec.SubAgents = resource.Dedupe(f.Selected(FieldSubAgents))
	spec.LLMModel = strings.TrimSpace(f.Value(FieldModel))
	spec.AdditionalPrompt = f.Value(FieldPrompt)
	spec.Timeout = timeout
	spec.TrustMode = formBool(f, FieldTrustMode)
	return spec, nil
}

func (AgentBinder) SpecOf(a resource.Agent) resource.AgentSpec { return a.Spec() }

func (AgentBinder) Empty() resource.AgentSpec {
	return resource.AgentSpec{AgentType: resource.AgentReact, Tools: []string{}, SubAgents: []string{}}
}

// ToolBinder edits tools. Type-specific settings other than code are
// carried over from the loaded record untouched.
type ToolBinder struct{}

func (ToolBinder) Fields() []FieldSpec {
	return []FieldSpec{
		{ID: FieldName, Label: "Name", Kind: FieldText, Required: true},
		{ID: FieldType, Label: "Type", Kind: FieldChoice, Required: true},
		{ID: FieldDescription, Label: "Description", Kind: FieldText},
		{ID: FieldCode, Label: "Code", Kind: FieldMultiline},
	}
}

func (ToolBinder) References() map[string]Reference { return nil }

func (ToolBinder) StaticOptions() map[string][]Option {
	opts := make([]Option, 0, len(resource.ToolTypes))
	for _, t := range resource.ToolTypes {
		opts = append(opts, Option{Value: string(t), Label: t.Label()})
	}
	return map[string][]Option{FieldType: opts}
}

func (ToolBinder) Populate(f Form, t resource.Tool) {
	f.Set(FieldName, t.Name)
	f.Set(FieldType, string(t.ToolType))
	f.Set(FieldDescription, t.Description)
	f.Set(FieldCode, t.Code)
}

func (ToolBinder) Assemble(f Form, base resource.ToolSpec) (resource.ToolSpec, error) {
	name, err := requiredName(f)
	if err != nil {
		return base, err
	}
	toolType, err := resource.ParseToolType(f.Value(FieldType))
	if err != nil {
		return base, &InputError{Field: FieldType, Message: "Tool type is required"}
	}
	spec := base
	spec.Name = name
	spec.ToolType = toolType
	spec.Description = f.Value(FieldDescription)
	spec.Code = f.Value(FieldCode)
	return spec, nil
}

func (ToolBinder) SpecOf(t resource.Tool) resource.ToolSpec { return t.Spec() }

func (ToolBinder) Empty() resource.ToolSpec {
	return resource.ToolSpec{ToolType: resource.ToolFunction}
}

// WorkflowBinder edits workflows. Connections are kept from the loaded
// record.
type WorkflowBinder struct{}

func (WorkflowBinder) Fields() []FieldSpec {
	return []FieldSpec{
		{ID: FieldName, Label: "Name", Kind: FieldText, Required: true},
		{ID: FieldDescription, Label: "Description", Kind: FieldText},
		{ID: FieldAgents, Label: "Agents", Kind: FieldMulti, Ordered: true},
	}
}

func (WorkflowBinder) References() map[string]Reference {
	return map[string]Reference{FieldAgents: RefAgents}
}

func (WorkflowBinder) StaticOptions() map[string][]Option { return nil }

func (WorkflowBinder) Populate(f Form, w resource.Workflow) {
	f.Set(FieldName, w.Name)
	f.Set(FieldDescription, w.Description)
	f.Select(FieldAgents, w.Agents)
}

func (WorkflowBinder) Assemble(f Form, base resource.WorkflowSpec) (resource.WorkflowSpec, error) {
	name, err := requiredName(f)
	if err != nil {
		return base, err
	}
	spec := base
	spec.Name = name
	spec.Description = f.Value(FieldDescription)
	spec.Agents = f.Selected(FieldAgents)
	if spec.Agents == nil {
		spec.Agents = []string{}
	}
	if spec.Connections == nil {
		spec.Connections = []map[string]any{}
	}
	return spec, nil
}

func (WorkflowBinder) SpecOf(w resource.Workflow) resource.WorkflowSpec { return w.Spec() }

func (WorkflowBinder) Empty() resource.WorkflowSpec {
	return resource.WorkflowSpec{Agents: []string{}, Connections: []map[string]any{}}
}

// MASBinder edits multi-agent systems. The oxy space is edited as a JSON
// array; config is carried over from the loaded record.
type MASBinder struct{}

func (MASBinder) Fields() []FieldSpec {
	return []FieldSpec{
		{ID: FieldName, Label: "Name", Kind: FieldText, Required: true},
		{ID: FieldDescription, Label: "Description", Kind: FieldText},
		{ID: FieldWelcome, Label: "Welcome message", Kind: FieldText},
		{ID: FieldOxySpace, Label: "Oxy space (JSON)", Kind: FieldMultiline, Required: true},
	}
}

func (MASBinder) References() map[string]Reference { return nil }

func (MASBinder) StaticOptions() map[string][]Option { return nil }

func (MASBinder) Populate(f Form, m resource.MAS) {
	f.Set(FieldName, m.Name)
	f.Set(FieldDescription, m.Description)
	f.Set(FieldWelcome, m.WelcomeMessage)
	f.Set(FieldOxySpace, formatOxySpace(m.OxySpace))
}

func formatOxySpace(space []map[string]any) string {
	if len(space) == 0 {
		return "[]"
	}
	raw, err := json.MarshalIndent(space, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func parseOxySpace(raw string) ([]map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []map[string]any{}, nil
	}
	var space []map[string]any
	if err := json.Unmarshal([]byte(raw), &space); err != nil || space == nil {
		return nil, &InputError{Field: FieldOxySpace, Message: "Oxy space must be a JSON array of objects"}
	}
	return space, nil
}

func (MASBinder) Assemble(f Form, base resource.MASSpec) (resource.MASSpec, error) {
	name, err := requiredName(f)
	if err != nil {
		return base, err
	}
	space, err := parseOxySpace(f.Value(FieldOxySpace))
	if err != nil {
		return base, err
	}
	spec := base
	spec.Name = name
	spec.Description = f.Value(FieldDescription)
	spec.WelcomeMessage = f.Value(FieldWelcome)
	spec.OxySpace = space
	return spec, nil
}

func (MASBinder) SpecOf(m resource.MAS) resource.MASSpec { return m.Spec() }

func (MASBinder) Empty() resource.MASSpec {
	return resource.MASSpec{OxySpace: []map[string]any{}}
}
