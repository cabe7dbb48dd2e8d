package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	ActionLeadCreated   = "lead.created"
	ActionLeadUpdated   = "lead.updated"
	ActionLeadMoved     = "lead.moved"
	ActionLeadArchived  = "lead.archived"
	ActionLeadRestored  = "lead.restored"
	ActionLeadDeleted   = "lead.deleted"
	ActionLeadsImported = "leads.imported"

	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// Event tells connected boards that a lead changed.
type Event struct {
	Action   string `json:"action"`
	LeadID   uint   `json:"lead_id,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Position int    `json:"position"`
	Count    int    `json:"count,omitempty"`
	UserID   uint   `json:"user_id,omitempty"`
}

// Broadcaster is what handlers need from the hub.
type Broadcaster interface {
	Broadcast(Event)
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub accepts websocket upgrades from the given origins; an empty list
// allows any origin.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		clients: make(map[*client]bool),
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues the event for every client without waiting on the
// network. A client whose queue is full is dropped.
func (h *Hub) Broadcast(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal board event", "action", ev.Action, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("dropping slow websocket client", "user_id", c.userID)
			h.removeLocked(c)
		}
	}
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away. Incoming messages are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), userID: userID}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	slog.Info("board client connected", "user_id", userID)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		slog.Info("board client disconnected", "user_id", c.userID)
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("unexpected websocket close", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

// writePump owns all writes to the connection.
func (h *Hub) writePump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Warn("websocket write failed", "user_id", c.userID, "error", err)
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
