// Package notify is the transient message strip shown to the operator.
//
// Notices are never queued: each one is visible from the moment it is
// posted until its own expiry, alongside whatever else is still live.
package notify

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/debug"
)

// DefaultTTL is how long a notice stays visible unless overridden.
const DefaultTTL = 3000 * time.Millisecond

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notice is one posted message.
type Notice struct {
	ID        int
	Message   string
	Severity  Severity
	PostedAt  time.Time
	ExpiresAt time.Time
}

// Notifier is what producers of notices depend on.
type Notifier interface {
	Notify(msg string, sev Severity)
}

// Center holds the live notices. The zero value is not usable; call New.
type Center struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	nextID int
	live   []Notice

	// Sink, when set, receives every notice as it is posted.
	Sink func(Notice)
}

// New returns a Center using ttl for Notify. ttl <= 0 selects DefaultTTL.
func New(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, now: time.Now}
}

// TTL is the default lifetime used by Notify.
func (c *Center) TTL() time.Duration { return c.ttl }

func (c *Center) Notify(msg string, sev Severity) {
	c.NotifyFor(msg, sev, c.ttl)
}

// NotifyFor posts a notice with an explicit lifetime.
func (c *Center) NotifyFor(msg string, sev Severity, ttl time.Duration) Notice {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	c.nextID++
	now := c.now()
	n := Notice{ID: c.nextID, Message: msg, Severity: sev, PostedAt: now, ExpiresAt: now.Add(ttl)}
	c.live = append(c.live, n)
	sink := c.Sink
	c.mu.Unlock()

	debug.LogKV("notify", msg, "severity", sev, "ttl", ttl)
	if sink != nil {
		sink(n)
	}
	return n
}

// Active returns the notices still live at now, oldest first, and forgets
// the expired ones.
func (c *Center) Active(now time.Time) []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.live[:0]
	for _, n := range c.live {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	c.live = kept
	return append([]Notice(nil), kept...)
}

// Latest returns the most recent live notice.
func (c *Center) Latest(now time.Time) (Notice, bool) {
	active := c.Active(now)
	if len(active) == 0 {
		return Notice{}, false
	}
	return active[len(active)-1], true
}

// Clear drops every notice.
func (c *Center) Clear() {
	c.mu.Lock()
	c.live = nil
	c.mu.Unlock()
}

// ExpiredMsg asks the UI to redraw once a notice may have expired.
type ExpiredMsg struct{ ID int }

// ExpireCmd fires ExpiredMsg when n's lifetime is over.
func ExpireCmd(n Notice) tea.Cmd {
	d := n.ExpiresAt.Sub(n.PostedAt)
	return tea.Tick(d, func(time.Time) tea.Msg { return ExpiredMsg{ID: n.ID} })
}

// Func adapts a plain function to Notifier.
type Func func(msg string, sev Severity)

func (f Func) Notify(msg string, sev Severity) { f(msg, sev) }

// Discard drops every notice.
var Discard Notifier = Func(func(string, Severity) {})

// Recorder collects notices in memory. Tests and the non-interactive CLI use
// it to inspect what the operator would have seen.
type Recorder struct {
	mu      sync.Mutex
	Notices []Notice
}

func (r *Recorder) Notify(msg string, sev Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, Notice{ID: len(r.Notices) + 1, Message: msg, Severity: sev})
}

// Messages returns "severity: message" lines in posting order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Notices))
	for _, n := range r.Notices {
		out = append(out, fmt.Sprintf("%s: %s", n.Severity, n.Message))
	}
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Notices) == 0 {
		return Notice{}, false
	}
	return r.Notices[len(r.Notices)-1], true
}
