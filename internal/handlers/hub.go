package handlers

import "sync"

const clientBuffer = 32

// Hub fans controller events out to WebSocket clients. A client that falls
// behind loses messages rather than slowing the others.
type Hub struct {
	mu      sync.Mutex
	clients map[chan wsEnvelope]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan wsEnvelope]struct{})}
}

// Broadcast implements service.Broadcaster.
func (h *Hub) Broadcast(kind string, data any) {
	env := wsEnvelope{Type: kind, Data: data}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- env:
		default:
		}
	}
}

func (h *Hub) subscribe() chan wsEnvelope {
	ch := make(chan wsEnvelope, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan wsEnvelope) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
