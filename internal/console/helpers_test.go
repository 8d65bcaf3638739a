package console

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/apiclient"
	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// fakeBackend answers "METHOD /path" routes and records every call.
type fakeBackend struct {
	mu     sync.Mutex
	calls  []string
	bodies map[string]string
	routes map[string]http.HandlerFunc
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{bodies: map[string]string{}, routes: map[string]http.HandlerFunc{}}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, apiclient.DefaultPrefix)
	data, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.calls = append(b.calls, key)
	b.bodies[key] = string(data)
	h := b.routes[key]
	b.mu.Unlock()
	if h == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "no route for " + key})
		return
	}
	h(w, r)
}

func (b *fakeBackend) handle(key string, status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[key] = func(w http.ResponseWriter, r *http.Request) { writeJSON(w, status, body) }
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *fakeBackend) called(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (b *fakeBackend) body(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[key]
}

func (b *fakeBackend) resetCalls() {
	b.mu.Lock()
	b.calls = nil
	b.mu.Unlock()
}

// seedDemo serves the demo dataset read-only.
func (b *fakeBackend) seedDemo() {
	d := resource.Demo()
	b.handle("GET /agents", http.StatusOK, d.Agents)
	b.handle("GET /tools", http.StatusOK, d.Tools)
	b.handle("GET /workflows", http.StatusOK, d.Workflows)
	b.handle("GET /mas", http.StatusOK, d.MAS)
	b.handle("GET /system/config", http.StatusOK, d.System)
	b.handle("GET /system/status", http.StatusOK, resource.SystemStatus{Version: "0.1.0", Status: "running"})
	for _, a := range d.Agents {
		b.handle("GET /agents/"+a.ID, http.StatusOK, a)
	}
	for _, t := range d.Tools {
		b.handle("GET /tools/"+t.ID, http.StatusOK, t)
	}
	for _, w := range d.Workflows {
		b.handle("GET /workflows/"+w.ID, http.StatusOK, w)
	}
	for _, m := range d.MAS {
		b.handle("GET /mas/"+m.ID, http.StatusOK, m)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil && status != http.StatusNoContent {
		json.NewEncoder(w).Encode(v)
	}
}

type harness struct {
	backend  *fakeBackend
	console  *Console
	notices  *notify.Recorder
	messages []tea.Msg
}

func newHarness(t *testing.T, mode config.FallbackMode) *harness {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	rec := &notify.Recorder{}
	client := apiclient.New(srv.URL, apiclient.WithNotifier(rec))
	return &harness{
		backend: backend,
		console: New(client, rec, Options{Fallback: mode}),
		notices: rec,
	}
}

// run executes cmd and every command it leads to, feeding each message
// back through the console the way the program loop would.
func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		h.messages = append(h.messages, msg)
		follow, ok := h.console.Update(msg)
		if !ok {
			continue
		}
		queue = append(queue, follow)
	}
}

func (h *harness) lastNotice(t *testing.T) notify.Notice {
	t.Helper()
	n, ok := h.notices.Last()
	if !ok {
		t.Fatal("no notice posted")
	}
	return n
}

func rowIDs(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if !r.Placeholder {
			out = append(out, r.ID)
		}
	}
	return out
}
