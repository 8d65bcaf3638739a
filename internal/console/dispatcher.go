package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/apiclient"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// InputMode is how a test/run prompt is interpreted.
type InputMode int

const (
	// InputFreeForm accepts plain text (sent as {"query": text}) or a JSON
	// object sent as is.
	InputFreeForm InputMode = iota
	// InputJSONObject requires a JSON object, sent as {"input_data": obj}.
	InputJSONObject
)

// ResultMsg carries a test or run payload. It is shown, never stored.
type ResultMsg struct {
	Kind    resource.Kind
	ID      string
	Verb    string
	Payload json.RawMessage
	Err     error
}

// Pretty indents the payload for display.
func (m ResultMsg) Pretty() string {
	return PrettyJSON(m.Payload)
}

// PrettyJSON indents raw JSON, returning it unchanged if it does not parse.
func PrettyJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// ValidatedMsg is the answer to a workflow validation.
type ValidatedMsg struct {
	ID         string
	Validation resource.Validation
	Err        error
}

// LifecycleMsg is the outcome of starting or stopping an instance.
type LifecycleMsg struct {
	Kind  resource.Kind
	ID    string
	Start bool
	Err   error
}

// DeletedMsg is the outcome of a confirmed delete.
type DeletedMsg struct {
	Kind   resource.Kind
	ID     string
	Result apiclient.Result
}

// Dispatcher issues the one-shot actions of a kind: test, run or query,
// validate, start and stop, and delete.
type Dispatcher[T resource.Record, S any] struct {
	kind     resource.Kind
	api      API[T, S]
	notifier notify.Notifier
	reload   func() tea.Cmd
	removed  func(id string)
	verb     string
	mode     InputMode
	validate func(ctx context.Context, id string) (resource.Validation, error)
	// toggle starts (start true) or stops an instance; nil when the kind
	// has no lifecycle.
	toggle func(ctx context.Context, id string, start bool) error

	pendingDelete string
}

// Verb is "test", "run" or "query"; empty when the kind has none.
func (d *Dispatcher[T, S]) Verb() string { return d.verb }

// CanValidate reports whether the kind supports validation.
func (d *Dispatcher[T, S]) CanValidate() bool { return d.validate != nil }

// ParseInput turns operator text into a request body without any network
// access.
func ParseInput(mode InputMode, input string) (map[string]any, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		if mode == InputJSONObject {
			return map[string]any{"input_data": map[string]any{}}, nil
		}
		return map[string]any{}, nil
	}

	looksJSON := strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "\"")
	if mode == InputFreeForm && !looksJSON {
		return map[string]any{"query": trimmed}, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, &InputError{Field: "input", Message: "Invalid JSON input: " + jsonErrorText(err)}
	}
	if obj == nil {
		return nil, &InputError{Field: "input", Message: "Invalid JSON input: expected an object"}
	}
	if mode == InputJSONObject {
		return map[string]any{"input_data": obj}, nil
	}
	return obj, nil
}

func jsonErrorText(err error) string {
	if _, ok := err.(*json.UnmarshalTypeError); ok {
		return "expected an object"
	}
	return err.Error()
}

// Invoke runs a test or run with operator input. Malformed input is
// reported as a warning and returned with a nil command.
func (d *Dispatcher[T, S]) Invoke(id, input string) (tea.Cmd, error) {
	if d.verb == "" {
		return nil, fmt.Errorf("%s has no test or run action", d.kind.Plural())
	}
	body, err := ParseInput(d.mode, input)
	if err != nil {
		debug.LogKV("action", "input rejected", "kind", d.kind, "id", id, "error", err)
		d.notifier.Notify(err.Error(), notify.SeverityWarning)
		return nil, err
	}
	api, kind, verb := d.api, d.kind, d.verb
	debug.LogKV("action", verb, "kind", kind, "id", id)
	return func() tea.Msg {
		raw, err := api.Action(context.Background(), id, verb, body)
		return ResultMsg{Kind: kind, ID: id, Verb: verb, Payload: raw, Err: err}
	}, nil
}

// ApplyResult announces a finished test or run.
func (d *Dispatcher[T, S]) ApplyResult(msg ResultMsg) {
	if msg.Err != nil {
		return
	}
	past := map[string]string{"test": "tested", "run": "ran", "query": "queried"}[msg.Verb]
	d.notifier.Notify(fmt.Sprintf("%s %s %s", d.kind.Title(), msg.ID, past), notify.SeveritySuccess)
}

// Validate asks the backend to check one workflow.
func (d *Dispatcher[T, S]) Validate(id string) tea.Cmd {
	if d.validate == nil {
		return nil
	}
	validate := d.validate
	return func() tea.Msg {
		v, err := validate(context.Background(), id)
		return ValidatedMsg{ID: id, Validation: v, Err: err}
	}
}

// ApplyValidated reports the verdict. An invalid workflow is returned as a
// *ValidationRejection.
func (d *Dispatcher[T, S]) ApplyValidated(msg ValidatedMsg) error {
	if msg.Err != nil {
		return msg.Err
	}
	if !msg.Validation.IsValid {
		rej := &ValidationRejection{WorkflowID: msg.ID, Messages: msg.Validation.Messages}
		debug.LogKV("action", "validation rejected", "id", msg.ID, "messages", len(rej.Messages))
		d.notifier.Notify(rej.Error(), notify.SeverityError)
		return rej
	}
	d.notifier.Notify("Workflow validation passed", notify.SeveritySuccess)
	return nil
}

// CanToggle reports whether the kind can be started and stopped.
func (d *Dispatcher[T, S]) CanToggle() bool { return d.toggle != nil }

// SetRunning starts or stops one instance.
func (d *Dispatcher[T, S]) SetRunning(id string, start bool) tea.Cmd {
	if d.toggle == nil {
		return nil
	}
	toggle, kind := d.toggle, d.kind
	debug.LogKV("action", "lifecycle", "kind", kind, "id", id, "start", start)
	return func() tea.Msg {
		return LifecycleMsg{Kind: kind, ID: id, Start: start, Err: toggle(context.Background(), id, start)}
	}
}

// ApplyLifecycle announces the new state and reloads the store.
func (d *Dispatcher[T, S]) ApplyLifecycle(msg LifecycleMsg) tea.Cmd {
	if msg.Err != nil {
		return nil
	}
	state := "stopped"
	if msg.Start {
		state = "started"
	}
	d.notifier.Notify(fmt.Sprintf("%s %s %s", d.kind.Title(), msg.ID, state), notify.SeveritySuccess)
	if d.reload == nil {
		return nil
	}
	return d.reload()
}

// RequestDelete arms a delete that needs ConfirmDelete to proceed.
func (d *Dispatcher[T, S]) RequestDelete(id string) {
	d.pendingDelete = id
}

// PendingDelete is the id awaiting confirmation.
func (d *Dispatcher[T, S]) PendingDelete() string { return d.pendingDelete }

func (d *Dispatcher[T, S]) CancelDelete() { d.pendingDelete = "" }

// ConfirmDelete sends the armed delete.
func (d *Dispatcher[T, S]) ConfirmDelete() tea.Cmd {
	id := d.pendingDelete
	if id == "" {
		return nil
	}
	d.pendingDelete = ""
	api, kind := d.api, d.kind
	debug.LogKV("action", "delete", "kind", kind, "id", id)
	return func() tea.Msg {
		return DeletedMsg{Kind: kind, ID: id, Result: api.Delete(context.Background(), id)}
	}
}

// ApplyDeleted reloads the store after a successful delete. A failed
// delete leaves the collection as it was.
func (d *Dispatcher[T, S]) ApplyDeleted(msg DeletedMsg) tea.Cmd {
	if msg.Result.Failed() {
		return nil
	}
	d.notifier.Notify(fmt.Sprintf("%s deleted successfully", d.kind.Title()), notify.SeveritySuccess)
	if d.removed != nil {
		d.removed(msg.ID)
	}
	if d.reload == nil {
		return nil
	}
	return d.reload()
}
