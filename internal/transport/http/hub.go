package http

import (
	"sync"

	"dilemma-arena/internal/app"
)

const sendBuffer = 32

// Hub tracks live websocket connections and implements app.Broadcaster.
// Delivery is fire-and-forget: events are queued per connection and a slow
// consumer loses its oldest queued event instead of blocking the game.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]chan app.Event
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]chan app.Event)}
}

// Register adds a connection and returns its event channel. The channel is
// closed by Unregister.
func (h *Hub) Register(connID string) <-chan app.Event {
	ch := make(chan app.Event, sendBuffer)
	h.mu.Lock()
	h.conns[connID] = ch
	h.mu.Unlock()
	return ch
}

// Unregister removes a connection and closes its channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	if ch, ok := h.conns[connID]; ok {
		delete(h.conns, connID)
		close(ch)
	}
	h.mu.Unlock()
}

// Send queues an event for one connection. Unknown connections are ignored.
func (h *Hub) Send(connID string, event app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if ch, ok := h.conns[connID]; ok {
		deliver(ch, event)
	}
}

// SendAll queues an event for every connection.
func (h *Hub) SendAll(event app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.conns {
		deliver(ch, event)
	}
}

func deliver(ch chan app.Event, event app.Event) {
	select {
	case ch <- event:
	default:
		// Drop the oldest queued event so a stalled client cannot block.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- event:
		default:
		}
	}
}
