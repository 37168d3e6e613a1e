// Package events broadcasts incident lifecycle changes to connected
// dispatch consoles over websocket.
package events

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is a single frame pushed to every connected console
type Event struct {
	Type       string    `json:"type"`
	IncidentID string    `json:"incidentID"`
	Status     string    `json:"status,omitempty"`
	At         time.Time `json:"at"`
}

// Event types
const (
	EventIncidentCreated = "incident-created"
	EventStatusChanged   = "incident-status-changed"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans incident events out to registered websocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
}

// NewHub creates an idle hub; call Run to start the fan-out loop
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// Run owns the client set; all map access happens on this goroutine
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case event := <-h.broadcast:
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(event); err != nil {
					zap.S().Debugw("dropping slow event consumer", "error", err)
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Publish queues an event for broadcast. Safe to call on a nil hub and
// never blocks the request path.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		zap.S().Warn("event feed backlog full, dropping event")
	}
}

// ServeWS upgrades the request and registers the connection on the hub.
// The feed is read-only; inbound frames are discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().With("error", err).Error("failed to upgrade websocket")
		return
	}
	h.register <- conn

	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
