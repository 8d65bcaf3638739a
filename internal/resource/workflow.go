package resource

// WorkflowSpec is the client-writable part of a workflow. Agents is ordered.
type WorkflowSpec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Agents      []string         `json:"agents"`
	Connections []map[string]any `json:"connections"`
	Config      map[string]any   `json:"config,omitempty"`
}

type Workflow struct {
	ID string `json:"id"`
	WorkflowSpec
	Status Status `json:"status,omitempty"`
}

func (w Workflow) RecordID() string    { return w.ID }
func (w Workflow) DisplayName() string { return w.Name }
func (w Workflow) Summary() string     { return w.Description }
func (w Workflow) Category() string    { return "" }

func (w Workflow) Spec() WorkflowSpec {
	s := w.WorkflowSpec
	s.Agents = append([]string{}, w.Agents...)
	if s.Connections == nil {
		s.Connections = []map[string]any{}
	}
	return s
}

// Validation is the backend's verdict on a workflow definition.
type Validation struct {
	WorkflowID string   `json:"workflow_id"`
	IsValid    bool     `json:"is_valid"`
	Messages   []string `json:"messages"`
}
