// Package hub fans settings and live output state out to websocket clients and routes
// their edits back into the config editor.
package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Hub manages WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	closed  bool
	logger  *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		logger:  logger,
	}
}

// Register adds a new client to the hub. It returns false once the hub has shut down.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = true
	h.logger.Infow("client connected", "total", len(h.clients))
	return true
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Infow("client disconnected", "total", len(h.clients))
}

// Broadcast sends a message to every client. A client whose buffer is full is dropped.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Client send buffer full, disconnect
			go h.Unregister(client)
		}
	}
}

// sendTo queues msg for c if the hub still holds it.
func (h *Hub) sendTo(c *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run blocks until ctx is done, then disconnects every client and refuses new ones.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	return nil
}
