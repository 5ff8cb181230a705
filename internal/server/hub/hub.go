package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mokjang/internal/api"
	"mokjang/internal/platform/metrics"
)

// sendBuffer bounds how far a slow subscriber may fall behind before it
// is dropped.
const sendBuffer = 16

type client struct {
	id   uuid.UUID
	name string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans attendance updates out to every connected push subscriber. The
// channel is receive-only from the subscriber's point of view; inbound
// frames are read and discarded only to detect disconnects.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[uuid.UUID]*client
	closed  bool
}

func New(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: m,
		clients: make(map[uuid.UUID]*client),
	}
}

// Register adopts an upgraded connection and starts its pumps. The display
// name is informational, for logs only.
func (h *Hub) Register(conn *websocket.Conn, name string) {
	c := &client{
		id:   uuid.New(),
		name: name,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("push subscriber connected", "client_id", c.id, "name", c.name, "subscribers", count)
	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast fans one envelope out to every subscriber. A subscriber whose
// buffer is full is dropped rather than allowed to stall the rest.
func (h *Hub) Broadcast(env api.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("encoding broadcast envelope", "error", err.Error())
		return
	}

	h.mu.Lock()
	var stalled []*client
	for _, c := range h.clients {
		select {
		case c.send <- raw:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	for _, c := range stalled {
		h.logger.Warn("dropping stalled push subscriber", "client_id", c.id, "name", c.name)
	}
	h.metrics.IncrementUpdatesBroadcast()
}

// Subscribers reports the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[uuid.UUID]*client)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	for raw := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			h.logger.Info("push subscriber write failed", "client_id", c.id, "error", err.Error())
			break
		}
	}
	c.conn.Close()
}

func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, present := h.clients[c.id]
	if present {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()

	if present {
		close(c.send)
		h.logger.Info("push subscriber disconnected", "client_id", c.id, "name", c.name)
	}
}
