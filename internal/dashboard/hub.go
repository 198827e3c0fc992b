package dashboard

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/faaalmv/saf-gda/internal/orchestrator"
)

// Hub manages dashboard WebSocket connections and pushes each completed
// batch to every client. Read-only with respect to the core.
type Hub struct {
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger,
	}
}

// AddClient registers a connection and reaps it when the peer goes away.
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.clientsMu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.clientsMu.Unlock()

	h.logger.Info("dashboard client connected", "clients", n)

	go func() {
		defer func() {
			h.clientsMu.Lock()
			delete(h.clients, conn)
			h.clientsMu.Unlock()
			_ = conn.Close()
			h.logger.Info("dashboard client disconnected")
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// BroadcastBatch pushes a completed batch to all connected clients.
func (h *Hub) BroadcastBatch(b orchestrator.Batch) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(b); err != nil {
			h.logger.Warn("dashboard push failed", "error", err)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}
