package resource

// MASSpec is the client-writable part of a multi-agent system. OxySpace is
// the ordered list of component definitions the system is built from.
type MASSpec struct {
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	OxySpace       []map[string]any `json:"oxy_space"`
	WelcomeMessage string           `json:"welcome_message"`
	Config         map[string]any   `json:"config,omitempty"`
}

// MAS is a deployable multi-agent system. New instances start inactive.
type MAS struct {
	ID string `json:"id"`
	MASSpec
	Status Status `json:"status,omitempty"`
}

func (m MAS) RecordID() string    { return m.ID }
func (m MAS) DisplayName() string { return m.Name }
func (m MAS) Summary() string     { return m.Description }
func (m MAS) Category() string    { return "" }

func (m MAS) Spec() MASSpec {
	s := m.MASSpec
	s.OxySpace = append([]map[string]any{}, m.OxySpace...)
	return s
}

// Active reports whether the instance accepts queries.
func (m MAS) Active() bool { return m.Status == StatusActive }

// MASQueryResult is the answer of a running instance to one query.
type MASQueryResult struct {
	MASID         string  `json:"mas_id"`
	Query         string  `json:"query"`
	Response      string  `json:"response"`
	ExecutionTime float64 `json:"execution_time"`
}
