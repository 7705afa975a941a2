// Package viewer consumes published transcripts from Kafka and relays them
// to browsers over WebSocket.
package viewer

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"speech-session-service/internal/models"
)

const writeTimeout = 5 * time.Second

// Hub tracks connected browsers and broadcasts transcripts to all of them.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Count returns the number of connected browsers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast writes ev to every browser, dropping those that fail.
func (h *Hub) Broadcast(ev models.TranscriptFinal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Warn().Err(err).Msg("Dropping viewer")
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ServeHTTP registers a browser and holds it until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Int("total", total).Msg("Viewer connected")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	total = len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Int("total", total).Msg("Viewer disconnected")
}
