// Package feed fans newly inserted placements out to interested consumers: the
// live projection, SSE clients, the notification pool and, optionally, other
// service instances over NATS.
package feed

import (
	"sync"

	"ccstock-backend/internal/model"
)

// Handler receives one placement. Handlers run on the publisher's goroutine and
// must not block.
type Handler func(model.Placement)

// Publisher accepts newly inserted placements.
type Publisher interface {
	Publish(p model.Placement)
}

// Hub is an in-process broadcaster.
type Hub struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{handlers: make(map[int]Handler)}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (h *Hub) Subscribe(fn Handler) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.handlers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers p to every current subscriber.
func (h *Hub) Publish(p model.Placement) {
	h.mu.RLock()
	handlers := make([]Handler, 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(p)
	}
}

// Subscribers reports the number of registered handlers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Multi publishes to several publishers in order. Nil entries are skipped.
type Multi []Publisher

func (m Multi) Publish(p model.Placement) {
	for _, pub := range m {
		if pub != nil {
			pub.Publish(p)
		}
	}
}
