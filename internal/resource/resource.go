// Package resource defines the records managed through the admin API:
// agents, tools, workflows, multi-agent systems and the system
// configuration singleton.
package resource

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies a managed resource collection.
type Kind string

const (
	KindAgent    Kind = "agent"
	KindTool     Kind = "tool"
	KindWorkflow Kind = "workflow"
	KindMAS      Kind = "mas"
	KindSystem   Kind = "system"
)

// Kinds lists every kind in navigation order.
var Kinds = []Kind{KindAgent, KindTool, KindWorkflow, KindMAS, KindSystem}

// ParseKind accepts singular or plural names ("agent", "agents").
func ParseKind(s string) (Kind, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v != string(KindMAS) {
		v = strings.TrimSuffix(v, "s")
	}
	for _, k := range Kinds {
		if string(k) == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// Path is the collection endpoint relative to the API prefix.
func (k Kind) Path() string {
	if k == KindSystem {
		return "/system/config"
	}
	return "/" + k.Plural()
}

// ItemPath is the endpoint of a single record.
func (k Kind) ItemPath(id string) string {
	return k.Path() + "/" + id
}

// Plural is the lowercase collection noun ("agents").
func (k Kind) Plural() string {
	switch k {
	case KindSystem:
		return "system"
	case KindMAS:
		return "mas"
	}
	return string(k) + "s"
}

// Title is the capitalized singular noun ("Agent").
func (k Kind) Title() string {
	switch k {
	case "":
		return ""
	case KindMAS:
		return "MAS"
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Record is implemented by every collection member.
type Record interface {
	RecordID() string
	DisplayName() string
	Summary() string
	// Category is the secondary filter field (agent or tool type); empty
	// for kinds without one.
	Category() string
}

// Status is owned by the backend; clients never write it.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// DuplicateIDError is returned when a loaded collection repeats an id.
type DuplicateIDError struct {
	Kind Kind
	ID   string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate %s id %q in backend response", e.Kind, e.ID)
}

// CheckUnique reports the first repeated id in records.
func CheckUnique[T Record](kind Kind, records []T) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		id := r.RecordID()
		if _, dup := seen[id]; dup {
			return &DuplicateIDError{Kind: kind, ID: id}
		}
		seen[id] = struct{}{}
	}
	return nil
}

// UnknownAgentLabel is shown for workflow agent references that do not
// resolve against the agent collection.
func UnknownAgentLabel(id string) string {
	return "Unknown Agent (" + id + ")"
}

// ResolveAgentNames maps agent ids to display names, keeping order.
func ResolveAgentNames(ids []string, agents []Agent) []string {
	byID := make(map[string]string, len(agents))
	for _, a := range agents {
		byID[a.ID] = a.Name
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			out = append(out, name)
		} else {
			out = append(out, UnknownAgentLabel(id))
		}
	}
	return out
}

// Dedupe drops repeated values, keeping first occurrence order.
func Dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Without returns values minus every occurrence of drop.
func Without(values []string, drop string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
