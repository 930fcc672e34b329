// Package events fans daemon activity (dispatched actions, sync progress,
// task state changes) out to websocket subscribers.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"rustactions/internal/logging"
)

// Event types.
const (
	TypeAction       = "action"
	TypeSyncProgress = "sync_progress"
	TypeSyncFinished = "sync_finished"
	TypeTask         = "task"
	TypeBinds        = "binds"
	TypeItems        = "items"
)

// Event is one published message.
type Event struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

type subscriber struct {
	ch chan []byte
}

// Hub broadcasts events to subscribers. Publishing never blocks: a
// subscriber whose queue is full is dropped.
type Hub struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	logger *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subs:   make(map[*subscriber]struct{}),
		logger: logging.NewComponentLogger(logger, "events"),
	}
}

// Publish stamps and broadcasts an event.
func (h *Hub) Publish(eventType string, payload any) {
	if h == nil {
		return
	}
	data, err := json.Marshal(Event{Type: eventType, Time: time.Now().UTC(), Payload: payload})
	if err != nil {
		h.logger.Warn("event encode failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "event_encode_failed"),
			logging.String(logging.FieldErrorHint, "event payload must be JSON encodable"),
		)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subs {
		select {
		case sub.ch <- data:
		default:
			delete(h.subs, sub)
			close(sub.ch)
			h.logger.Debug("slow subscriber dropped", logging.Int("clients", len(h.subs)))
		}
	}
}

// Subscribe registers a subscriber. The returned channel is closed when the
// cancel func runs, the subscriber falls behind, or the hub closes.
func (h *Hub) Subscribe(buffer int) (<-chan []byte, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	sub := &subscriber{ch: make(chan []byte, buffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[sub]; ok {
				delete(h.subs, sub)
				close(sub.ch)
			}
		})
	}
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
	}
	clear(h.subs)
}
