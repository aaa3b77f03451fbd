package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/capsulebuddy/backend/internal/notify"
)

// NotificationsHandler upgrades clients onto the due-reminder feed
type NotificationsHandler struct {
	hub            *notify.Hub
	logger         *slog.Logger
	allowedOrigins []string
}

// NewNotificationsHandler creates a new notifications handler
func NewNotificationsHandler(hub *notify.Hub, logger *slog.Logger, allowedOrigins []string) *NotificationsHandler {
	return &NotificationsHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

// upgrader is initialized per-request to use instance's allowed origins
func (h *NotificationsHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Allow requests with no origin (e.g., non-browser clients)
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/notifications requests
func (h *NotificationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.hub.Register(ws)
	defer h.hub.Unregister(ws)

	// Clients only listen; the read loop just detects disconnects
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
