package console

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/oxyadmin/oxyadmin/internal/apiclient"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// API is the slice of apiclient.Collection the controllers use.
type API[T resource.Record, S any] interface {
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, spec S) (T, error)
	Update(ctx context.Context, id string, spec S) (T, error)
	Delete(ctx context.Context, id string) apiclient.Result
	Action(ctx context.Context, id, verb string, body any) (json.RawMessage, error)
}

// RefLoader fetches one list of options.
type RefLoader func(ctx context.Context) ([]Option, error)

type SessionState int

const (
	Idle SessionState = iota
	Creating
	Editing
)

func (s SessionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Editing:
		return "editing"
	}
	return "unknown"
}

// OpenedMsg delivers the data a session needs before it can be edited.
// Err is the record fetch failure; OptionErrs holds one entry per
// reference list that could not be loaded.
type OpenedMsg[T resource.Record] struct {
	Kind       resource.Kind
	gen        uint64
	editID     string
	Record     T
	Options    map[string][]Option
	OptionErrs map[string]error
	Err        error
}

// CommittedMsg is the backend's answer to a save.
type CommittedMsg[T resource.Record] struct {
	Kind    resource.Kind
	gen     uint64
	Created bool
	Record  T
	Err     error
}

// Session is the create/edit state machine for one kind. At most one
// session is live; opening another discards the current one.
type Session[T resource.Record, S any] struct {
	kind     resource.Kind
	api      API[T, S]
	binder   Binder[T, S]
	form     Form
	refs     map[Reference]RefLoader
	notifier notify.Notifier
	reload   func() tea.Cmd
	// saved receives the record the backend confirmed, ahead of the reload.
	saved    func(T)

	state     SessionState
	editID    string
	pendingID string
	opening   bool
	saving    bool
	base      S
	gen       uint64
}

func newSession[T resource.Record, S any](kind resource.Kind, api API[T, S], binder Binder[T, S], form Form,
	refs map[Reference]RefLoader, n notify.Notifier, reload func() tea.Cmd) *Session[T, S] {
	return &Session[T, S]{
		kind:     kind,
		api:      api,
		binder:   binder,
		form:     form,
		refs:     refs,
		notifier: n,
		reload:   reload,
		base:     binder.Empty(),
	}
}

func (s *Session[T, S]) State() SessionState { return s.state }

// EditingID is the record under edit, "" unless State is Editing.
func (s *Session[T, S]) EditingID() string { return s.editID }

// Opening reports whether reference data or the record is still loading.
func (s *Session[T, S]) Opening() bool { return s.opening }

// Saving reports whether a commit is in flight.
func (s *Session[T, S]) Saving() bool { return s.saving }

func (s *Session[T, S]) Form() Form { return s.form }

func (s *Session[T, S]) Fields() []FieldSpec { return s.binder.Fields() }

// Active reports whether a create or edit is open or opening.
func (s *Session[T, S]) Active() bool { return s.state != Idle || s.opening }

// discard drops the live session and resets the form.
func (s *Session[T, S]) discard() {
	if s.Active() {
		debug.LogKV("session", "discarded", "kind", s.kind, "state", s.state, "id", s.editID)
	}
	s.gen++
	s.state = Idle
	s.editID = ""
	s.pendingID = ""
	s.opening = false
	s.saving = false
	s.base = s.binder.Empty()
	s.form.Reset()
	for field, opts := range s.binder.StaticOptions() {
		s.form.SetOptions(field, opts)
	}
}

// OpenCreate starts a blank session and loads reference lists.
func (s *Session[T, S]) OpenCreate() tea.Cmd {
	s.discard()
	s.state = Creating
	s.opening = true
	debug.LogKV("session", "open create", "kind", s.kind)
	return s.openCmd(s.gen, "")
}

// OpenEdit fetches id from the backend and populates the form once it and
// the reference lists arrive.
func (s *Session[T, S]) OpenEdit(id string) tea.Cmd {
	s.discard()
	s.pendingID = id
	s.opening = true
	debug.LogKV("session", "open edit", "kind", s.kind, "id", id)
	return s.openCmd(s.gen, id)
}

func (s *Session[T, S]) openCmd(gen uint64, id string) tea.Cmd {
	api := s.api
	kind := s.kind
	wanted := s.binder.References()
	refs := s.refs
	return func() tea.Msg {
		msg := OpenedMsg[T]{Kind: kind, gen: gen, editID: id, Options: map[string][]Option{}, OptionErrs: map[string]error{}}
		var mu sync.Mutex
		// Loads are independent: one failing list must not cancel the others.
		var g errgroup.Group
		ctx := context.Background()
		if id != "" {
			g.Go(func() error {
				rec, err := api.Get(ctx, id)
				mu.Lock()
				msg.Record, msg.Err = rec, err
				mu.Unlock()
				return nil
			})
		}
		for field, ref := range wanted {
			load, ok := refs[ref]
			if !ok {
				continue
			}
			g.Go(func() error {
				opts, err := load(ctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					msg.OptionErrs[field] = fmt.Errorf("loading %s: %w", ref, err)
					return nil
				}
				msg.Options[field] = opts
				return nil
			})
		}
		_ = g.Wait()
		return msg
	}
}

// ApplyOpened installs the loaded data. Results for a session that has
// since been replaced are dropped.
func (s *Session[T, S]) ApplyOpened(msg OpenedMsg[T]) {
	if msg.gen != s.gen {
		debug.LogKV("session", "stale open dropped", "kind", s.kind)
		return
	}
	s.opening = false
	editing := msg.editID != ""

	if editing && msg.Err != nil {
		s.discard()
		return
	}
	for field, err := range msg.OptionErrs {
		debug.LogKV("session", "options unavailable", "kind", s.kind, "field", field, "error", err)
	}
	for field, opts := range msg.Options {
		if editing && field == FieldSubAgents {
			opts = slices.DeleteFunc(slices.Clone(opts), func(o Option) bool { return o.Value == msg.editID })
		}
		s.form.SetOptions(field, opts)
	}
	if !editing {
		return
	}
	s.binder.Populate(s.form, msg.Record)
	s.base = s.binder.SpecOf(msg.Record)
	s.state = Editing
	s.editID = msg.editID
	s.pendingID = ""
}

// Commit validates the form locally and sends POST or PUT. Local input
// errors are reported as warnings and never reach the network.
func (s *Session[T, S]) Commit() (tea.Cmd, error) {
	if s.state == Idle || s.opening {
		return nil, nil
	}
	if s.saving {
		return nil, nil
	}
	spec, err := s.binder.Assemble(s.form, s.base)
	if err != nil {
		debug.LogKV("session", "input rejected", "kind", s.kind, "error", err)
		s.notifier.Notify(err.Error(), notify.SeverityWarning)
		return nil, err
	}

	s.saving = true
	api := s.api
	kind := s.kind
	gen := s.gen
	id := s.editID
	creating := s.state == Creating
	debug.LogKV("session", "commit", "kind", kind, "state", s.state, "id", id)
	return func() tea.Msg {
		ctx := context.Background()
		var (
			rec T
			err error
		)
		if creating {
			rec, err = api.Create(ctx, spec)
		} else {
			rec, err = api.Update(ctx, id, spec)
		}
		return CommittedMsg[T]{Kind: kind, gen: gen, Created: creating, Record: rec, Err: err}
	}, nil
}

// ApplyCommitted closes the session on success and returns the store
// reload. Failures keep the session open for another try.
func (s *Session[T, S]) ApplyCommitted(msg CommittedMsg[T]) tea.Cmd {
	current := msg.gen == s.gen
	if current {
		s.saving = false
	}
	if msg.Err != nil {
		return nil
	}

	verb := "updated"
	if msg.Created {
		verb = "created"
	}
	s.notifier.Notify(fmt.Sprintf("%s %s successfully", s.kind.Title(), verb), notify.SeveritySuccess)
	if s.saved != nil && msg.Record.RecordID() != "" {
		s.saved(msg.Record)
	}
	if current {
		s.discard()
	}
	if s.reload == nil {
		return nil
	}
	return s.reload()
}

// Cancel discards the session without touching the store.
func (s *Session[T, S]) Cancel() {
	s.discard()
}

// Describe is a short status line such as "Editing agent time_agent".
func (s *Session[T, S]) Describe() string {
	switch {
	case s.opening && s.pendingID != "":
		return fmt.Sprintf("Loading %s %s...", s.kind, s.pendingID)
	case s.state == Creating:
		return "New " + s.kind.Title()
	case s.state == Editing:
		name := strings.TrimSpace(s.form.Value(FieldName))
		if name == "" {
			name = s.editID
		}
		return fmt.Sprintf("Edit %s %s", s.kind.Title(), name)
	}
	return ""
}
