package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/capsulebuddy/backend/internal/evaluator"
)

// Event is the wire shape broadcast for each due reminder
type Event struct {
	ReminderID   string `json:"reminder_id"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Time         string `json:"time"`
}

// Hub broadcasts due-reminder events to connected WebSocket clients. It is
// an observation feed, not a guaranteed delivery channel: a slow or gone
// client is dropped, never retried.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]struct{}),
		logger:  logger,
	}
}

// Register adds a client connection to the broadcast set
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
	h.logger.Debug("notification client connected", slog.Int("clients", len(h.clients)))
}

// Unregister removes and closes a client connection
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify broadcasts one match to every connected client
func (h *Hub) Notify(_ context.Context, match evaluator.Match) error {
	event := Event{
		ReminderID:   match.Reminder.ID,
		UserID:       match.User.ID,
		UserName:     match.User.Name,
		MedicineName: match.Medicine.Name,
		Dosage:       match.Reminder.Dosage,
		Time:         match.MatchedTime,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping notification client", slog.String("error", err.Error()))
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}
