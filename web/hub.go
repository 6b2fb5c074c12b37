package web

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"parlo/player"
	"parlo/segment"
)

// SegmentEvent is pushed to follow-along clients whenever the active
// segment changes. ID is meaningful only when Active is true.
type SegmentEvent struct {
	ID     int     `json:"id"`
	Active bool    `json:"active"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Text   string  `json:"text"`
}

// Hub fans segment events out to connected websocket clients.
type Hub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			// Local single-user tool; all origins are the user's own.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("follow-along client connected", "clients", n)

	// Drain (and discard) client messages to notice disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Broadcast sends an event to every connected client, dropping clients
// whose connection has gone away.
func (h *Hub) Broadcast(ev SegmentEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(ev); err != nil {
			h.drop(c)
		}
	}
}

// Listener adapts the hub to the player's segment-change notification.
func (h *Hub) Listener() player.SegmentListener {
	return func(s segment.Segment, active bool) {
		h.Broadcast(SegmentEvent{
			ID:     s.ID,
			Active: active,
			Start:  s.Start,
			End:    s.End,
			Text:   s.Text,
		})
	}
}
