// Package notifications streams state changes to websocket clients and
// accepts intents from them.
package notifications

import (
	"context"
	"errors"
	"sync"

	"snapfeed/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const maxConns = 256

// ErrConnectionLimit is returned by Register when the hub is full.
var ErrConnectionLimit = errors.New("connection limit reached")

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("hub is shut down")

// Hub tracks the connected state viewers.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	closed   bool
	incoming func(*Client, []byte)
	logger   *observability.WSLogger
}

// NewHub creates a new Hub. incoming, when set, receives every frame a
// client sends.
func NewHub(incoming func(*Client, []byte)) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		incoming: incoming,
		logger:   observability.NewWSLogger("state hub"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "state hub" }

// Register adds a connection and returns its Client.
func (h *Hub) Register(ctx context.Context, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxConns {
		return nil, ErrConnectionLimit
	}

	client := NewClient(ctx, h, conn, uuid.NewString())
	client.IncomingHandler = h.incoming
	h.clients[client] = struct{}{}
	observability.WebSocketConnectionsTotal.Inc()
	h.logger.LogConnect(ctx, client.ID)
	return client, nil
}

// UnregisterClient removes client and closes its send channel. It is safe to
// call more than once.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	observability.WebSocketConnectionsTotal.Dec()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// Shutdown refuses new connections and closes every send channel; each
// WritePump then sends a close frame and the connection winds down.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
		observability.WebSocketConnectionsTotal.Dec()
		h.logger.LogDisconnect(ctx, client.ID, "server shutting down")
	}
	return nil
}
