package tui

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oxyadmin/oxyadmin/internal/apiclient"
	"github.com/oxyadmin/oxyadmin/internal/config"
	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/webserver"
)

// cmdTimeout bounds each command run by settle. Backend calls finish well
// inside it; cursor blinks and long ticks do not and are dropped.
const cmdTimeout = time.Second

type testApp struct {
	m       AppModel
	backend *webserver.Server

	mu     sync.Mutex
	posted []notify.Notice
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, webserver.Options{})
}

func newTestAppWith(t *testing.T, opts webserver.Options) *testApp {
	t.Helper()
	backend := webserver.New(opts)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	ta := &testApp{backend: backend}
	center := notify.New(time.Millisecond)
	center.Sink = func(n notify.Notice) {
		ta.mu.Lock()
		ta.posted = append(ta.posted, n)
		ta.mu.Unlock()
	}
	client := apiclient.New(srv.URL, apiclient.WithNotifier(center))
	c := console.New(client, center, console.Options{Fallback: config.FallbackOff})
	ta.m = NewApp(c, center, Options{Backend: srv.URL})
	ta.m.width, ta.m.height = 120, 40
	ta.settle(t, c.ReloadAll())
	return ta
}

// press sends keys one at a time and discards the resulting commands.
func (ta *testApp) press(keys ...tea.KeyMsg) {
	for _, k := range keys {
		model, _ := ta.m.Update(k)
		ta.m = model.(AppModel)
	}
}

// pressRun sends one key and runs everything it leads to.
func (ta *testApp) pressRun(t *testing.T, k tea.KeyMsg) {
	t.Helper()
	model, cmd := ta.m.Update(k)
	ta.m = model.(AppModel)
	ta.settle(t, cmd)
}

// settle runs cmd and every follow-up command, feeding messages back
// through Update the way the program loop would.
func (ta *testApp) settle(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 500 {
			t.Fatal("command chain did not settle")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg, ok := runWithTimeout(next)
		if !ok || msg == nil {
			continue
		}
		if batch, isBatch := msg.(tea.BatchMsg); isBatch {
			queue = append(queue, batch...)
			continue
		}
		if strings.HasPrefix(fmt.Sprintf("%T", msg), "cursor.") {
			continue
		}
		model, follow := ta.m.Update(msg)
		ta.m = model.(AppModel)
		queue = append(queue, follow)
	}
}

func runWithTimeout(cmd tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(cmdTimeout):
		return nil, false
	}
}

func (ta *testApp) notices() []notify.Notice {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	return append([]notify.Notice(nil), ta.posted...)
}

func (ta *testApp) lastNotice(t *testing.T) notify.Notice {
	t.Helper()
	all := ta.notices()
	if len(all) == 0 {
		t.Fatal("no notices posted")
	}
	return all[len(all)-1]
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyOf(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}
