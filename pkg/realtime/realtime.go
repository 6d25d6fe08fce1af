// Package realtime fans out session state-change notifications to
// listeners such as WebSocket writers.
//
// Delivery is best-effort. Each listener owns a small buffered channel and an
// event that does not fit is dropped for that listener only, so a slow
// consumer never blocks the session. Events are wake-up signals: a
// listener re-reads the current state when it receives one, which means a
// dropped intermediate event never hides the final state.
package realtime

import (
	"sync"
)

// Kind names the part of the state that changed.
type Kind string

const (
	KindCollections Kind = "collections"
	KindCollection  Kind = "collection"
	KindTerm        Kind = "term"
	KindSuggestions Kind = "suggestions"
	KindResults     Kind = "results"
)

// Event signals a state change. Revision is the state revision after the
// change.
type Event struct {
	Kind     Kind   `json:"kind"`
	Revision uint64 `json:"revision"`
}

// Hub is safe for concurrent use.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Event
	nextID    uint64
	bufSize   int
}

// NewHub returns a hub with the given per-listener buffer. Non-positive
// sizes default to 8.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 8
	}
	return &Hub{
		listeners: make(map[uint64]chan Event),
		bufSize:   bufSize,
	}
}

// Register adds a listener. Callers must Unregister the returned id.
func (h *Hub) Register() (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes a listener and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers ev to every listener with room in its buffer.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close unregisters every listener.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.listeners {
		delete(h.listeners, id)
		close(ch)
	}
}

// Size returns the number of registered listeners.
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
