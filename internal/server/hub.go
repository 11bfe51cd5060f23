package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// StreamUpdate is broadcast to dashboard connections on stream lifecycle
// events.
type StreamUpdate struct {
	Type     string `json:"type"` // "stream_start", "stream_complete", "stream_error"
	StreamID string `json:"stream_id,omitempty"`
	Rows     int64  `json:"rows,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Hub tracks dashboard connections and fans stream updates out to them.
type Hub struct {
	dashboards map[*websocket.Conn]bool
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{dashboards: make(map[*websocket.Conn]bool)}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dashboards[conn] = true
	slog.Info("dashboard connected", "total_connections", len(h.dashboards))
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.dashboards[conn]; ok {
		delete(h.dashboards, conn)
		conn.Close()
		slog.Info("dashboard disconnected", "total_connections", len(h.dashboards))
	}
}

func (h *Hub) Broadcast(update StreamUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	payload, _ := json.Marshal(update)
	for conn := range h.dashboards {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Error("dashboard broadcast failed", "error", err)
			conn.Close()
			delete(h.dashboards, conn)
		}
	}
}
