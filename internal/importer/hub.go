package importer

import (
	"sync"

	"github.com/i474232898/site-analytics/internal/pagination"
)

// Event types published on the hub.
const (
	EventEnriched     = "weather-data-enriched"
	EventImportFailed = "import-failed"
)

// Event tells the subscribers of a session that its data changed.
type Event struct {
	Type     string               `json:"type"`
	Session  string               `json:"-"`
	JobID    string               `json:"jobId"`
	Snapshot *pagination.Snapshot `json:"snapshot,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// subscriberBuffer is the number of events a slow subscriber may lag behind
// before further events to it are dropped.
const subscriberBuffer = 8

// Hub fans events out to the subscribers of each session.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan Event]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a channel of the events for session and a function that
// ends the subscription. The channel is closed on unsubscribe or Close.
func (h *Hub) Subscribe(session string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}
	if h.subs[session] == nil {
		h.subs[session] = make(map[chan Event]struct{})
	}
	h.subs[session][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[session][ch]; !ok {
				return
			}
			delete(h.subs[session], ch)
			if len(h.subs[session]) == 0 {
				delete(h.subs, session)
			}
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber of ev.Session without blocking.
// It returns the number of subscribers that received it.
func (h *Hub) Publish(ev Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var n int
	for ch := range h.subs[ev.Session] {
		select {
		case ch <- ev:
			n++
		default:
		}
	}
	return n
}

// Subscribers returns the number of subscriptions for session.
func (h *Hub) Subscribers(session string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[session])
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for session, chans := range h.subs {
		for ch := range chans {
			close(ch)
		}
		delete(h.subs, session)
	}
}
