package console

import (
	"slices"
	"strings"
)

// Field ids shared by the binders and every Form implementation.
const (
	FieldName        = "name"
	FieldType        = "type"
	FieldDescription = "description"
	FieldIsMaster    = "is_master"
	FieldTools       = "tools"
	FieldSubAgents   = "sub_agents"
	FieldModel       = "llm_model"
	FieldPrompt      = "additional_prompt"
	FieldTimeout     = "timeout"
	FieldTrustMode   = "trust_mode"
	FieldAgents      = "agents"
	FieldCode        = "code"
	FieldWelcome     = "welcome_message"
	FieldOxySpace    = "oxy_space"
)

// FieldKind tells a surface how to present a field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldMultiline
	FieldBool
	FieldChoice // one value from Options
	FieldMulti  // any number of values from Options
)

// FieldSpec describes one form field.
type FieldSpec struct {
	ID       string
	Label    string
	Kind     FieldKind
	Required bool
	// Ordered multi-selects keep the order values were selected in.
	Ordered bool
}

// Option is one choice offered by a choice or multi field.
type Option struct {
	Value string
	Label string
}

// Form is the surface an edit session reads and writes. Booleans are the
// strings "true" and "false".
type Form interface {
	Reset()
	Set(field, value string)
	Value(field string) string
	SetOptions(field string, opts []Option)
	Options(field string) []Option
	Select(field string, values []string)
	Selected(field string) []string
}

// MapForm is an in-memory Form used by the command line and tests.
type MapForm struct {
	values   map[string]string
	options  map[string][]Option
	selected map[string][]string
}

func NewMapForm() *MapForm {
	f := &MapForm{}
	f.Reset()
	return f
}

func (f *MapForm) Reset() {
	f.values = map[string]string{}
	f.options = map[string][]Option{}
	f.selected = map[string][]string{}
}

func (f *MapForm) Set(field, value string) { f.values[field] = value }

func (f *MapForm) Value(field string) string { return f.values[field] }

func (f *MapForm) SetOptions(field string, opts []Option) {
	f.options[field] = slices.Clone(opts)
}

func (f *MapForm) Options(field string) []Option { return slices.Clone(f.options[field]) }

// Select marks values. Values with no matching option are ignored once
// options for the field have been set.
func (f *MapForm) Select(field string, values []string) {
	opts, hasOpts := f.options[field]
	out := make([]string, 0, len(values))
	for _, v := range values {
		if hasOpts && !slices.ContainsFunc(opts, func(o Option) bool { return o.Value == v }) {
			continue
		}
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	f.selected[field] = out
}

func (f *MapForm) Selected(field string) []string { return slices.Clone(f.selected[field]) }

// Toggle flips one value in a multi-select, appending when newly selected.
func Toggle(f Form, field, value string) {
	cur := f.Selected(field)
	if i := slices.Index(cur, value); i >= 0 {
		f.Select(field, slices.Delete(cur, i, i+1))
		return
	}
	f.Select(field, append(cur, value))
}

func formBool(f Form, field string) bool {
	switch strings.ToLower(strings.TrimSpace(f.Value(field))) {
	case "true", "yes", "y", "1", "on":
		return true
	}
	return false
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
