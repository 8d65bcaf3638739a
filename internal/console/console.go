// Package console is the resource-management controller behind every
// screen: a store per kind, a filtered list view over it, one edit session
// and the one-shot actions. The terminal UI and the command line are thin
// surfaces over it.
//
// Controllers are driven from a single goroutine. Network work happens in
// the tea.Cmds they return, and the resulting messages are fed back
// through Update.
package console

import (
	"cmp"
	"context"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/apiclient"
	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
	"github.com/oxyadmin/oxyadmin/internal/store"
)

// Controller is the kind-independent view of a Resource used by surfaces.
type Controller interface {
	Kind() resource.Kind

	Render() []Row
	Rows() []Row
	Titles() []string
	Widths() []int
	Filter() Filter
	SetFilter(f Filter)
	Move(delta int)
	Cursor() int
	Selected() (Row, bool)
	Trigger(key string) (Invocation, bool)
	Reload() tea.Cmd
	Loaded() bool
	ShowingDemo() bool

	OpenCreate() tea.Cmd
	OpenEdit(id string) tea.Cmd
	Commit() (tea.Cmd, error)
	Cancel()
	SessionState() SessionState
	SessionBusy() bool
	DescribeSession() string
	Form() Form
	Fields() []FieldSpec

	Verb() string
	CanValidate() bool
	CanToggle() bool
	SetRunning(id string, start bool) tea.Cmd
	Invoke(id, input string) (tea.Cmd, error)
	Validate(id string) tea.Cmd
	RequestDelete(id string)
	PendingDelete() string
	ConfirmDelete() tea.Cmd
	CancelDelete()

	Update(msg tea.Msg) (tea.Cmd, bool)
}

// Resource wires one kind's store, view, session and actions together.
type Resource[T resource.Record, S any] struct {
	Store   *store.Store[T]
	View    *ListView[T]
	Session *Session[T, S]
	Actions *Dispatcher[T, S]
}

func (r *Resource[T, S]) Kind() resource.Kind { return r.Store.Kind() }

func (r *Resource[T, S]) Render() []Row         { return r.View.Render(r.Store.All()) }
func (r *Resource[T, S]) Rows() []Row           { return r.View.Rows() }
func (r *Resource[T, S]) Titles() []string      { return r.View.Titles() }
func (r *Resource[T, S]) Widths() []int         { return r.View.Widths() }
func (r *Resource[T, S]) Filter() Filter        { return r.View.Filter() }
func (r *Resource[T, S]) Move(delta int)        { r.View.Move(delta) }
func (r *Resource[T, S]) Cursor() int           { return r.View.Cursor() }
func (r *Resource[T, S]) Selected() (Row, bool) { return r.View.Selected() }
func (r *Resource[T, S]) Reload() tea.Cmd       { return r.Store.LoadCmd() }
func (r *Resource[T, S]) Loaded() bool          { return r.Store.Loaded() }
func (r *Resource[T, S]) ShowingDemo() bool     { return r.Store.ShowingDemo() }

func (r *Resource[T, S]) SetFilter(f Filter) {
	r.View.SetFilter(f)
	r.Render()
}

func (r *Resource[T, S]) Trigger(key string) (Invocation, bool) { return r.View.Trigger(key) }

func (r *Resource[T, S]) OpenCreate() tea.Cmd        { return r.Session.OpenCreate() }
func (r *Resource[T, S]) OpenEdit(id string) tea.Cmd { return r.Session.OpenEdit(id) }
func (r *Resource[T, S]) Commit() (tea.Cmd, error)   { return r.Session.Commit() }
func (r *Resource[T, S]) Cancel()                    { r.Session.Cancel() }
func (r *Resource[T, S]) SessionState() SessionState { return r.Session.State() }
func (r *Resource[T, S]) SessionBusy() bool          { return r.Session.Opening() || r.Session.Saving() }
func (r *Resource[T, S]) DescribeSession() string    { return r.Session.Describe() }
func (r *Resource[T, S]) Form() Form                 { return r.Session.Form() }
func (r *Resource[T, S]) Fields() []FieldSpec        { return r.Session.Fields() }

func (r *Resource[T, S]) Verb() string                             { return r.Actions.Verb() }
func (r *Resource[T, S]) CanValidate() bool                        { return r.Actions.CanValidate() }
func (r *Resource[T, S]) CanToggle() bool                          { return r.Actions.CanToggle() }
func (r *Resource[T, S]) SetRunning(id string, start bool) tea.Cmd { return r.Actions.SetRunning(id, start) }
func (r *Resource[T, S]) Invoke(id, input string) (tea.Cmd, error) { return r.Actions.Invoke(id, input) }
func (r *Resource[T, S]) Validate(id string) tea.Cmd               { return r.Actions.Validate(id) }
func (r *Resource[T, S]) RequestDelete(id string)                  { r.Actions.RequestDelete(id) }
func (r *Resource[T, S]) PendingDelete() string                    { return r.Actions.PendingDelete() }
func (r *Resource[T, S]) ConfirmDelete() tea.Cmd                   { return r.Actions.ConfirmDelete() }
func (r *Resource[T, S]) CancelDelete()                            { r.Actions.CancelDelete() }

// Update consumes messages addressed to this kind.
func (r *Resource[T, S]) Update(msg tea.Msg) (tea.Cmd, bool) {
	kind := r.Kind()
	switch msg := msg.(type) {
	case store.LoadedMsg[T]:
		r.Store.Apply(msg)
		r.Render()
		return nil, true
	case OpenedMsg[T]:
		r.Session.ApplyOpened(msg)
		return nil, true
	case CommittedMsg[T]:
		cmd := r.Session.ApplyCommitted(msg)
		r.Render()
		return cmd, true
	case ResultMsg:
		if msg.Kind != kind {
			return nil, false
		}
		r.Actions.ApplyResult(msg)
		return nil, true
	case ValidatedMsg:
		if !r.Actions.CanValidate() {
			return nil, false
		}
		r.Actions.ApplyValidated(msg)
		return nil, true
	case LifecycleMsg:
		if msg.Kind != kind {
			return nil, false
		}
		return r.Actions.ApplyLifecycle(msg), true
	case DeletedMsg:
		if msg.Kind != kind {
			return nil, false
		}
		cmd := r.Actions.ApplyDeleted(msg)
		r.Render()
		return cmd, true
	}
	return nil, false
}

// Options configures New.
type Options struct {
	Fallback config.FallbackMode
	// Forms builds the form each kind's session edits. Nil uses MapForm.
	Forms func(kind resource.Kind) Form
}

// Console holds every controller.
type Console struct {
	Client    *apiclient.Client
	Notifier  notify.Notifier
	Agents    *Resource[resource.Agent, resource.AgentSpec]
	Tools     *Resource[resource.Tool, resource.ToolSpec]
	Workflows *Resource[resource.Workflow, resource.WorkflowSpec]
	MAS       *Resource[resource.MAS, resource.MASSpec]
	System    *SystemScreen
}

func New(client *apiclient.Client, n notify.Notifier, opts Options) *Console {
	if n == nil {
		n = notify.Discard
	}
	if opts.Forms == nil {
		opts.Forms = func(resource.Kind) Form { return NewMapForm() }
	}
	demo := resource.Demo()
	c := &Console{Client: client, Notifier: n}

	refs := map[Reference]RefLoader{
		RefTools:  toolOptions(client),
		RefAgents: agentOptions(client),
		RefModels: modelOptions(client),
	}

	c.Agents = newResource(resource.KindAgent, client.Agents(), AgentBinder{},
		demo.Agents, AgentColumns(c.toolName), opts, refs, n, InputFreeForm, nil)
	c.Tools = newResource(resource.KindTool, client.Tools(), ToolBinder{},
		demo.Tools, ToolColumns(), opts, refs, n, InputJSONObject, nil)
	c.Workflows = newResource(resource.KindWorkflow, client.Workflows(), WorkflowBinder{},
		demo.Workflows, WorkflowColumns(c.Agents.Store.All), opts, refs, n, InputJSONObject, client.ValidateWorkflow)
	c.MAS = newResource(resource.KindMAS, client.MAS(), MASBinder{},
		demo.MAS, MASColumns(), opts, refs, n, InputFreeForm, nil)
	c.MAS.Actions.toggle = func(ctx context.Context, id string, start bool) error {
		var err error
		if start {
			_, err = client.StartMAS(ctx, id)
		} else {
			_, err = client.StopMAS(ctx, id)
		}
		return err
	}
	c.System = NewSystemScreen(client, n, demo.System, opts.Fallback)
	return c
}

// collection is what newResource needs from an apiclient.Collection.
type collection[T resource.Record, S any] interface {
	API[T, S]
	List(ctx context.Context) ([]T, error)
}

func newResource[T resource.Record, S any](
	kind resource.Kind,
	api collection[T, S],
	binder Binder[T, S],
	fallback []T,
	columns []Column[T],
	opts Options,
	refs map[Reference]RefLoader,
	n notify.Notifier,
	mode InputMode,
	validate func(context.Context, string) (resource.Validation, error),
) *Resource[T, S] {
	st := store.New[T](kind, api.List,
		store.WithFallback(fallback, opts.Fallback),
		store.WithNotifier[T](n))
	verb := "test"
	switch kind {
	case resource.KindWorkflow:
		verb = "run"
	case resource.KindMAS:
		verb = "query"
	}
	r := &Resource[T, S]{
		Store: st,
		View:  NewListView(kind, columns),
	}
	r.Session = newSession(kind, API[T, S](api), binder, opts.Forms(kind), refs, n, st.LoadCmd)
	r.Session.saved = st.Upsert
	r.Actions = &Dispatcher[T, S]{
		kind:     kind,
		api:      api,
		notifier: n,
		reload:   st.LoadCmd,
		removed:  st.Remove,
		verb:     verb,
		mode:     mode,
		validate: validate,
	}
	r.Session.discard()
	r.Render()
	return r
}

// Controller returns the controller of kind, or nil for the system kind.
func (c *Console) Controller(kind resource.Kind) Controller {
	switch kind {
	case resource.KindAgent:
		return c.Agents
	case resource.KindTool:
		return c.Tools
	case resource.KindWorkflow:
		return c.Workflows
	case resource.KindMAS:
		return c.MAS
	}
	return nil
}

// ReloadAll starts a load of every collection and the system config.
func (c *Console) ReloadAll() tea.Cmd {
	return tea.Batch(c.Agents.Reload(), c.Tools.Reload(), c.Workflows.Reload(), c.MAS.Reload(), c.System.LoadCmd())
}

// Reload starts a load of one kind.
func (c *Console) Reload(kind resource.Kind) tea.Cmd {
	if kind == resource.KindSystem {
		return c.System.LoadCmd()
	}
	if ctrl := c.Controller(kind); ctrl != nil {
		return ctrl.Reload()
	}
	return nil
}

// Update routes msg to whichever controller owns it. Workflow rows are
// re-rendered after every message since they show agent names.
func (c *Console) Update(msg tea.Msg) (tea.Cmd, bool) {
	for _, r := range []Controller{c.Agents, c.Tools, c.Workflows, c.MAS} {
		if cmd, ok := r.Update(msg); ok {
			c.Workflows.Render()
			return cmd, true
		}
	}
	return c.System.Update(msg)
}

func (c *Console) toolName(id string) string {
	if t, ok := c.Tools.Store.ByID(id); ok {
		return t.Name
	}
	return id
}

func toolOptions(client *apiclient.Client) RefLoader {
	return func(ctx context.Context) ([]Option, error) {
		tools, err := client.Tools().List(ctx)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(tools))
		for _, t := range tools {
			opts = append(opts, Option{Value: t.ID, Label: t.Name})
		}
		slices.SortFunc(opts, func(a, b Option) int { return cmp.Compare(a.Label, b.Label) })
		return opts, nil
	}
}

func agentOptions(client *apiclient.Client) RefLoader {
	return func(ctx context.Context) ([]Option, error) {
		agents, err := client.Agents().List(ctx)
		if err != nil {
			return nil, err
		}
		opts := make([]Option, 0, len(agents))
		for _, a := range agents {
			opts = append(opts, Option{Value: a.ID, Label: a.Name})
		}
		return opts, nil
	}
}

func modelOptions(client *apiclient.Client) RefLoader {
	return func(ctx context.Context) ([]Option, error) {
		cfg, err := client.GetSystemConfig(ctx)
		if err != nil {
			return nil, err
		}
		names := cfg.ModelNames()
		opts := make([]Option, 0, len(names))
		for _, n := range names {
			opts = append(opts, Option{Value: n, Label: n})
		}
		return opts, nil
	}
}
