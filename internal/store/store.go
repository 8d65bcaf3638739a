// Package store keeps one in-memory collection per resource kind in sync
// with the backend. The store is the only thing list views render from.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// Loader fetches the full collection from the backend.
type Loader[T resource.Record] func(ctx context.Context) ([]T, error)

// Outcome describes what a completed load did to the store.
type Outcome int

const (
	OutcomeApplied  Outcome = iota // collection replaced
	OutcomeStale                   // a newer load had started; result dropped
	OutcomeFallback                // load failed, demo data installed
	OutcomeFailed                  // load failed, prior collection kept
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeStale:
		return "stale"
	case OutcomeFallback:
		return "fallback"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Ticket identifies one started load. Only the most recent ticket's
// completion is honoured.
type Ticket struct {
	kind resource.Kind
	gen  uint64
}

// LoadedMsg carries a finished load back to the program loop.
type LoadedMsg[T resource.Record] struct {
	Ticket  Ticket
	Records []T
	Err     error
}

// Store is one kind's collection.
type Store[T resource.Record] struct {
	kind     resource.Kind
	loader   Loader[T]
	fallback []T
	mode     config.FallbackMode
	notifier notify.Notifier

	mu      sync.RWMutex
	records []T
	gen     uint64
	loaded  bool
	demo    bool
}

type Option[T resource.Record] func(*Store[T])

// WithFallback installs records when a load fails under mode.
func WithFallback[T resource.Record](records []T, mode config.FallbackMode) Option[T] {
	return func(s *Store[T]) {
		s.fallback = slices.Clone(records)
		s.mode = mode
	}
}

func WithNotifier[T resource.Record](n notify.Notifier) Option[T] {
	return func(s *Store[T]) { s.notifier = n }
}

func New[T resource.Record](kind resource.Kind, loader Loader[T], opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		kind:     kind,
		loader:   loader,
		mode:     config.FallbackOff,
		notifier: notify.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store[T]) Kind() resource.Kind { return s.kind }

// Begin starts a load and supersedes every earlier one.
func (s *Store[T]) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	debug.LogKV("store", "load started", "kind", s.kind, "gen", s.gen)
	return Ticket{kind: s.kind, gen: s.gen}
}

// Complete applies the result of the load identified by t. The returned
// error is the load failure (already reported by the API client) or a
// duplicate-id error.
func (s *Store[T]) Complete(t Ticket, records []T, err error) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.kind != s.kind || t.gen != s.gen {
		debug.LogKV("store", "stale load dropped", "kind", s.kind, "gen", t.gen, "current", s.gen)
		return OutcomeStale, nil
	}

	if err != nil {
		if s.useFallback() {
			s.records = slices.Clone(s.fallback)
			s.demo = true
			debug.LogKV("store", "demo data installed", "kind", s.kind, "count", len(s.records), "error", err)
			s.notifier.Notify(fmt.Sprintf("Backend unavailable, showing demo %s", s.kind.Plural()), notify.SeverityInfo)
			return OutcomeFallback, err
		}
		debug.LogKV("store", "load failed, keeping prior data", "kind", s.kind, "count", len(s.records), "error", err)
		return OutcomeFailed, err
	}

	if dupErr := resource.CheckUnique(s.kind, records); dupErr != nil {
		debug.LogKV("store", "load rejected", "kind", s.kind, "error", dupErr)
		s.notifier.Notify(dupErr.Error(), notify.SeverityError)
		return OutcomeFailed, dupErr
	}

	s.records = slices.Clone(records)
	if s.records == nil {
		s.records = []T{}
	}
	s.loaded = true
	s.demo = false
	debug.LogKV("store", "load applied", "kind", s.kind, "count", len(s.records))
	return OutcomeApplied, nil
}

// useFallback requires the caller to hold mu.
func (s *Store[T]) useFallback() bool {
	if len(s.fallback) == 0 || len(s.records) > 0 {
		return false
	}
	switch s.mode {
	case config.FallbackInitial:
		return !s.loaded
	case config.FallbackAlways:
		return true
	}
	return false
}

// Load runs a full load synchronously.
func (s *Store[T]) Load(ctx context.Context) (Outcome, error) {
	t := s.Begin()
	records, err := s.loader(ctx)
	return s.Complete(t, records, err)
}

// LoadCmd starts a load now and fetches in the returned command.
func (s *Store[T]) LoadCmd() tea.Cmd {
	t := s.Begin()
	loader := s.loader
	return func() tea.Msg {
		records, err := loader(context.Background())
		return LoadedMsg[T]{Ticket: t, Records: records, Err: err}
	}
}

// Apply completes a load started by LoadCmd.
func (s *Store[T]) Apply(msg LoadedMsg[T]) (Outcome, error) {
	return s.Complete(msg.Ticket, msg.Records, msg.Err)
}

// All returns the collection in server order. The slice is a copy.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

func (s *Store[T]) ByID(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Loaded reports whether any load has succeeded.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ShowingDemo reports whether the collection is the fallback dataset.
func (s *Store[T]) ShowingDemo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.demo
}

// Upsert patches one record after a confirmed round-trip. The collection
// is replaced, never edited in place.
func (s *Store[T]) Upsert(rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := slices.Clone(s.records)
	idx := slices.IndexFunc(next, func(r T) bool { return r.RecordID() == rec.RecordID() })
	if idx >= 0 {
		next[idx] = rec
	} else {
		next = append(next, rec)
	}
	s.records = next
}

// Remove drops one record after a confirmed delete.
func (s *Store[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.DeleteFunc(slices.Clone(s.records), func(r T) bool { return r.RecordID() == id })
}
