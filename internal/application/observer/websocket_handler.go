package observer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The notebook runs as a local single-user tool; accept any origin.
		return true
	},
}

// WebSocketHandler upgrades HTTP requests into hub-managed WebSocket
// connections.
type WebSocketHandler struct {
	hub    *WebSocketHub
	logger *logger.Logger

	// InitialState supplies the first message pushed to a new client,
	// typically the current cells and states.
	InitialState func() any
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *WebSocketHub, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("Failed to upgrade WebSocket connection", "error", err)
		}
		return
	}

	clientID := uuid.New().String()
	client := NewWebSocketClient(clientID, conn, h.hub)
	h.hub.Register(client)

	if h.InitialState != nil {
		msg := WebSocketMessage{
			Type:      "control",
			Control:   map[string]any{"init": h.InitialState(), "client_id": clientID},
			Timestamp: time.Now().UTC(),
		}
		if data, err := json.Marshal(msg); err == nil {
			client.Send(data)
		}
	}

	go client.WritePump()
	go client.ReadPump()

	if h.logger != nil {
		h.logger.Info("WebSocket connection established",
			"client_id", clientID,
			"remote_addr", r.RemoteAddr,
		)
	}
}
