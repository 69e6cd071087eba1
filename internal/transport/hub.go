// Package transport carries the game over websockets: one client per
// connection, a JSON envelope, and a router from request types to the game
// service.
package transport

import (
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Hub tracks live clients by connection id. It is the game's Notifier.
type Hub struct {
	clients   map[string]*Client
	clientsMu sync.RWMutex
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.clientsMu.Lock()
	h.clients[c.ID] = c
	h.clientsMu.Unlock()

	h.logger.Info("client connected", zap.String("conn", c.ID))
}

// unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) unregister(c *Client) bool {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if cur, ok := h.clients[c.ID]; !ok || cur != c {
		return false
	}
	delete(h.clients, c.ID)
	close(c.send)

	h.logger.Info("client disconnected", zap.String("conn", c.ID))
	return true
}

// Send pushes an event to one connection without blocking. It implements
// game.Notifier.
func (h *Hub) Send(conn string, event string, payload any) {
	if err := h.SendToClient(conn, Outbound{Type: event, Data: payload}); err != nil {
		h.logger.Warn("push dropped",
			zap.String("conn", conn),
			zap.String("event", event),
			zap.Error(err))
	}
}

// SendToClient marshals msg and queues it on the client's send buffer.
func (h *Hub) SendToClient(conn string, msg Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	c, ok := h.clients[conn]
	if !ok {
		return ErrClientNotFound
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// OnlineCount is the number of open connections.
func (h *Hub) OnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
