// Package wsbridge fans a session's StepEvent/TerminalEvent stream out over
// a WebSocket connection, for a caller that wants to expose one — the HTTP/
// WS front-end itself lives outside this repository; this is just one more
// implementation of a subscriber sink on top of sessionmanager.Manager.
package wsbridge

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kandev/androidctl/internal/common/logger"
)

// Hub tracks every live client for observability (GetClientCount); unlike
// the broadcast hub this is adapted from, it does no message routing of its
// own — each Client holds its own subscription against sessionmanager.
// Manager, which already fans one session's events out to every
// subscriber independently.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	logger  *logger.Logger
}

// NewHub creates an empty Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{clients: make(map[*Client]bool), logger: log}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// GetClientCount returns the number of currently connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client wraps one WebSocket connection streaming a single session's
// events. conn is not safe for concurrent writes, so every write goes
// through send and writePump.
type Client struct {
	ID        string
	SessionID string
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	logger    *logger.Logger
}

func newClient(id, sessionID string, conn *websocket.Conn, hub *Hub, log *logger.Logger) *Client {
	return &Client{ID: id, SessionID: sessionID, conn: conn, send: make(chan []byte, 256), hub: hub, logger: log}
}
