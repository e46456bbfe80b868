// Package events fans task changes out to live subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTaskAdded   Type = "task_added"
	TypeTaskUpdated Type = "task_updated"
	TypeTaskDeleted Type = "task_deleted"
)

type Event struct {
	ID     string    `json:"id"`
	Type   Type      `json:"type"`
	TaskID int64     `json:"task_id"`
	Text   string    `json:"text,omitempty"`
	At     time.Time `json:"at"`
}

const defaultSubscriberBuffer = 64

// Hub delivers every published event to each current subscriber. A
// subscriber whose buffer is full misses the event; Publish never blocks.
type Hub struct {
	mu          sync.RWMutex
	buffer      int
	subscribers map[int]chan Event
	nextSubID   int
	closed      bool
	onDrop      func()
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		buffer:      buffer,
		subscribers: make(map[int]chan Event),
	}
}

// SetDropHook registers a callback invoked whenever an event is dropped for a
// slow subscriber.
func (h *Hub) SetDropHook(hook func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDrop = hook
}

func (h *Hub) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- evt:
		default:
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Subscribe returns a channel of future events and a cancel func that must be
// called to release it. The channel is closed on cancel or Close.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.nextSubID++
	id := h.nextSubID
	h.subscribers[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(c)
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects all subscribers. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subscribers {
		delete(h.subscribers, id)
		close(ch)
	}
}
