// Package livefeed carries change notifications from a backend to connected
// consoles over a websocket.
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/oxyadmin/oxyadmin/internal/debug"
	"github.com/oxyadmin/oxyadmin/internal/eventq"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// Path is where the feed is served, outside the API prefix.
const Path = "/ws/events"

const (
	TypeChanged = "changed"
	TypeDeleted = "deleted"
)

// Event reports that a record of Kind changed. ID is empty for the system
// configuration.
type Event struct {
	Type string        `json:"type"`
	Kind resource.Kind `json:"kind"`
	ID   string        `json:"id,omitempty"`
}

// Hub fans events out to every connected subscriber. Slow subscribers
// lose events rather than stall publishers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan Event]struct{}{}}
}

// Publish delivers ev to every subscriber whose buffer has room.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		if !eventq.Offer(ch, ev) {
			debug.LogKV("livefeed", "dropped event for slow subscriber", "kind", ev.Kind, "id", ev.ID)
		}
	}
}

// Subscribers is the number of connected feeds.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) add() chan Event {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) remove(ch chan Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until either side
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer ws.CloseNow()

	ch := h.add()
	defer h.remove(ch)
	debug.LogKV("livefeed", "subscriber connected", "remote", r.RemoteAddr)

	// Reading is only needed to notice the peer closing.
	ctx := ws.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			debug.LogKV("livefeed", "subscriber gone", "remote", r.RemoteAddr)
			return
		case ev := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := wsjson.Write(writeCtx, ws, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// FeedURL turns a backend base URL into the feed's websocket URL.
func FeedURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + Path
}

// Subscribe dials the feed of the backend at baseURL. The returned channel
// is closed when ctx ends or the connection drops.
func Subscribe(ctx context.Context, baseURL, token string) (<-chan Event, error) {
	var opts *websocket.DialOptions
	if token != "" {
		opts = &websocket.DialOptions{HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}}}
	}
	ws, _, err := websocket.Dial(ctx, FeedURL(baseURL), opts)
	if err != nil {
		return nil, fmt.Errorf("dialing live feed: %w", err)
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		defer ws.CloseNow()
		for {
			var raw json.RawMessage
			if err := wsjson.Read(ctx, ws, &raw); err != nil {
				debug.LogKV("livefeed", "feed closed", "error", err)
				return
			}
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil || ev.Kind == "" {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
