package webserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// apiError is a handler failure rendered as {"detail": ...}.
type apiError struct {
	status int
	detail any
}

func (e *apiError) Error() string { return fmt.Sprint(e.detail) }

func badRequest(format string, args ...any) *apiError {
	return &apiError{status: http.StatusBadRequest, detail: fmt.Sprintf(format, args...)}
}

func notFound(noun, id string) *apiError {
	return &apiError{status: http.StatusNotFound, detail: fmt.Sprintf("%s with ID '%s' not found", noun, id)}
}

// fieldIssue mirrors one entry of a request validation failure list.
type fieldIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func missingFields(fields ...string) *apiError {
	issues := make([]fieldIssue, 0, len(fields))
	for _, f := range fields {
		issues = append(issues, fieldIssue{Loc: []string{"body", f}, Msg: "Field required", Type: "missing"})
	}
	return &apiError{status: http.StatusUnprocessableEntity, detail: issues}
}

func invalidJSON(err error) *apiError {
	return &apiError{status: http.StatusUnprocessableEntity, detail: []fieldIssue{{
		Loc: []string{"body"}, Msg: "JSON decode error: " + err.Error(), Type: "json_invalid",
	}}}
}

// decodeObject parses a request body that must be a JSON object.
func decodeObject(body []byte) (map[string]json.RawMessage, *apiError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, invalidJSON(err)
	}
	if fields == nil {
		return nil, invalidJSON(fmt.Errorf("expected an object"))
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

// rules holds the per-kind behaviour of a table.
type rules[T resource.Record] struct {
	kind     resource.Kind
	required []string
	// typed reports an invalid type field; nil when the kind has none.
	typed     func(T) *apiError
	normalize func(*T)
	stamp     func(t *T, id string, status resource.Status)
	// noun names one record in error details; empty uses the kind title.
	noun string
	// initial is the status of created records; empty means active.
	initial resource.Status
}

func (r rules[T]) label() string {
	if r.noun != "" {
		return r.noun
	}
	return r.kind.Title()
}

// table is an in-memory collection with numeric string ids assigned in
// creation order.
type table[T resource.Record] struct {
	rules[T]
	mu      sync.RWMutex
	records []T
	nextID  int
}

func newTable[T resource.Record](r rules[T], seed []T) *table[T] {
	t := &table[T]{rules: r}
	for _, rec := range seed {
		r.normalize(&rec)
		t.records = append(t.records, rec)
		if n, err := strconv.Atoi(rec.RecordID()); err == nil && n > t.nextID {
			t.nextID = n
		}
	}
	return t
}

func (t *table[T]) list() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.records)
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

func (t *table[T]) index(id string) int {
	return slices.IndexFunc(t.records, func(r T) bool { return r.RecordID() == id })
}

func (t *table[T]) get(id string) (T, *apiError) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.index(id)
	if i < 0 {
		var zero T
		return zero, notFound(t.label(), id)
	}
	return t.records[i], nil
}

func (t *table[T]) nameTaken(name, except string) bool {
	return slices.ContainsFunc(t.records, func(r T) bool {
		return r.DisplayName() == name && r.RecordID() != except
	})
}

func (t *table[T]) check(rec T, except string) *apiError {
	if strings.TrimSpace(rec.DisplayName()) == "" {
		return badRequest("%s name cannot be empty", t.label())
	}
	if t.nameTaken(rec.DisplayName(), except) {
		return badRequest("%s with name '%s' already exists", t.label(), rec.DisplayName())
	}
	if t.typed != nil {
		if err := t.typed(rec); err != nil {
			return err
		}
	}
	return nil
}

func (t *table[T]) create(body []byte) (T, *apiError) {
	var zero T
	fields, apiErr := decodeObject(body)
	if apiErr != nil {
		return zero, apiErr
	}
	var missing []string
	for _, name := range t.required {
		if isNull(fields[name]) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return zero, missingFields(missing...)
	}

	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		return zero, invalidJSON(err)
	}
	t.normalize(&rec)

	t.mu.Lock()
	defer t.mu.Unlock()
	if apiErr := t.check(rec, ""); apiErr != nil {
		return zero, apiErr
	}
	status := t.initial
	if status == "" {
		status = resource.StatusActive
	}
	t.nextID++
	t.stamp(&rec, strconv.Itoa(t.nextID), status)
	t.records = append(t.records, rec)
	return rec, nil
}

// update applies the non-null fields of body over the stored record. The
// id and status stay owned by the server.
func (t *table[T]) update(id string, body []byte) (T, *apiError) {
	var zero T
	patch, apiErr := decodeObject(body)
	if apiErr != nil {
		return zero, apiErr
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(id)
	if i < 0 {
		return zero, notFound(t.label(), id)
	}
	current := t.records[i]

	raw, err := json.Marshal(current)
	if err != nil {
		return zero, &apiError{status: http.StatusInternalServerError, detail: err.Error()}
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return zero, &apiError{status: http.StatusInternalServerError, detail: err.Error()}
	}
	for key, value := range patch {
		if key == "id" || key == "status" || isNull(value) {
			continue
		}
		merged[key] = value
	}
	raw, err = json.Marshal(merged)
	if err != nil {
		return zero, &apiError{status: http.StatusInternalServerError, detail: err.Error()}
	}

	var next T
	if err := json.Unmarshal(raw, &next); err != nil {
		return zero, invalidJSON(err)
	}
	t.normalize(&next)
	if apiErr := t.check(next, id); apiErr != nil {
		return zero, apiErr
	}
	t.records[i] = next
	return next, nil
}

// setStatus moves a record to status and returns the stored result.
func (t *table[T]) setStatus(id string, status resource.Status) (T, *apiError) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(id)
	if i < 0 {
		var zero T
		return zero, notFound(t.label(), id)
	}
	t.stamp(&t.records[i], id, status)
	return t.records[i], nil
}

func (t *table[T]) remove(id string) *apiError {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.index(id)
	if i < 0 {
		return notFound(t.label(), id)
	}
	t.records = slices.Delete(t.records, i, i+1)
	return nil
}

func emptyIfNil[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}

func typeError(kind string, allowed []string) *apiError {
	return badRequest("Invalid %s type. Must be one of: %s", kind, strings.Join(allowed, ", "))
}

func agentRules() rules[resource.Agent] {
	allowed := make([]string, 0, len(resource.AgentTypes))
	for _, t := range resource.AgentTypes {
		allowed = append(allowed, string(t))
	}
	return rules[resource.Agent]{
		kind:     resource.KindAgent,
		required: []string{"name", "agent_type"},
		typed: func(a resource.Agent) *apiError {
			if !slices.Contains(resource.AgentTypes, a.AgentType) {
				return typeError("agent", allowed)
			}
			return nil
		},
		normalize: func(a *resource.Agent) {
			a.Tools = emptyIfNil(a.Tools)
			a.SubAgents = emptyIfNil(a.SubAgents)
		},
		stamp: func(a *resource.Agent, id string, status resource.Status) {
			a.ID, a.Status = id, status
		},
	}
}

func toolRules() rules[resource.Tool] {
	allowed := make([]string, 0, len(resource.ToolTypes))
	for _, t := range resource.ToolTypes {
		allowed = append(allowed, string(t))
	}
	return rules[resource.Tool]{
		kind:     resource.KindTool,
		required: []string{"name", "tool_type"},
		typed: func(t resource.Tool) *apiError {
			if !slices.Contains(resource.ToolTypes, t.ToolType) {
				return typeError("tool", allowed)
			}
			return nil
		},
		normalize: func(*resource.Tool) {},
		stamp: func(t *resource.Tool, id string, status resource.Status) {
			t.ID, t.Status = id, status
		},
	}
}

func workflowRules() rules[resource.Workflow] {
	return rules[resource.Workflow]{
		kind:     resource.KindWorkflow,
		required: []string{"name"},
		normalize: func(w *resource.Workflow) {
			w.Agents = emptyIfNil(w.Agents)
			w.Connections = emptyIfNil(w.Connections)
		},
		stamp: func(w *resource.Workflow, id string, status resource.Status) {
			w.ID, w.Status = id, status
		},
	}
}

func masRules() rules[resource.MAS] {
	return rules[resource.MAS]{
		kind:     resource.KindMAS,
		required: []string{"name", "oxy_space"},
		normalize: func(m *resource.MAS) {
			m.OxySpace = emptyIfNil(m.OxySpace)
		},
		stamp: func(m *resource.MAS, id string, status resource.Status) {
			m.ID, m.Status = id, status
		},
		noun:    "MAS instance",
		initial: resource.StatusInactive,
	}
}

// validateWorkflow checks the workflow's agent references against the
// agent table. A valid workflow reports no messages.
func validateWorkflow(w resource.Workflow, agents []resource.Agent) resource.Validation {
	known := make(map[string]bool, len(agents))
	for _, a := range agents {
		known[a.ID] = true
	}
	inWorkflow := make(map[string]bool, len(w.Agents))
	for _, id := range w.Agents {
		inWorkflow[id] = true
	}

	messages := []string{}
	if len(w.Agents) == 0 {
		messages = append(messages, "Workflow has no agents")
	}
	for _, id := range w.Agents {
		if !known[id] {
			messages = append(messages, fmt.Sprintf("Agent '%s' does not exist", id))
		}
	}
	for i, conn := range w.Connections {
		for _, end := range []string{"from", "to"} {
			ref, ok := conn[end].(string)
			if !ok {
				messages = append(messages, fmt.Sprintf("Connection %d is missing '%s'", i+1, end))
				continue
			}
			if !inWorkflow[ref] {
				messages = append(messages, fmt.Sprintf("Connection %d references agent '%s' outside the workflow", i+1, ref))
			}
		}
	}
	return resource.Validation{WorkflowID: w.ID, IsValid: len(messages) == 0, Messages: messages}
}
