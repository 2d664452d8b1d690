package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// WebSocketObserver broadcasts notebook events to WebSocket clients.
type WebSocketObserver struct {
	name   string
	filter EventFilter
	logger *logger.Logger
	hub    *WebSocketHub
}

// WebSocketClient represents a connected WebSocket client.
type WebSocketClient struct {
	ID   string
	conn *websocket.Conn
	send chan []byte
	hub  *WebSocketHub
}

// WebSocketHub manages WebSocket connections and broadcasting.
type WebSocketHub struct {
	clients    map[*WebSocketClient]bool
	broadcast  chan []byte
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	logger     *logger.Logger
	mu         sync.RWMutex
}

// WebSocketMessage is the envelope sent to WebSocket clients.
type WebSocketMessage struct {
	Type      string            `json:"type"` // "status", "cells_updated" or "control"
	CellID    string            `json:"cell_id,omitempty"`
	State     *models.CellState `json:"state,omitempty"`
	Cells     []*models.Cell    `json:"cells,omitempty"`
	Control   map[string]any    `json:"control,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// WebSocketObserverOption configures WebSocketObserver.
type WebSocketObserverOption func(*WebSocketObserver)

// WithWebSocketFilter sets the event filter.
func WithWebSocketFilter(filter EventFilter) WebSocketObserverOption {
	return func(o *WebSocketObserver) {
		o.filter = filter
	}
}

// WithWebSocketLogger sets the logger instance.
func WithWebSocketLogger(l *logger.Logger) WebSocketObserverOption {
	return func(o *WebSocketObserver) {
		o.logger = l
	}
}

// NewWebSocketHub creates a hub and starts its broadcast loop.
func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	hub := &WebSocketHub{
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		logger:     log,
	}

	go hub.run()
	return hub
}

// NewWebSocketObserver creates a new WebSocket observer.
func NewWebSocketObserver(hub *WebSocketHub, opts ...WebSocketObserverOption) *WebSocketObserver {
	obs := &WebSocketObserver{
		name: "websocket",
		hub:  hub,
	}
	for _, opt := range opts {
		opt(obs)
	}
	return obs
}

// Name returns the observer's name.
func (o *WebSocketObserver) Name() string {
	return o.name
}

// Filter returns the event filter.
func (o *WebSocketObserver) Filter() EventFilter {
	return o.filter
}

// OnEvent broadcasts one event to all connected clients.
func (o *WebSocketObserver) OnEvent(ctx context.Context, event Event) error {
	data, err := json.Marshal(eventToMessage(event))
	if err != nil {
		if o.logger != nil {
			o.logger.ErrorContext(ctx, "Failed to marshal WebSocket message",
				"error", err,
				"event_type", string(event.Type),
			)
		}
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	o.hub.Broadcast(data)
	return nil
}

// GetHub returns the hub for HTTP handler integration.
func (o *WebSocketObserver) GetHub() *WebSocketHub {
	return o.hub
}

func eventToMessage(event Event) *WebSocketMessage {
	msg := &WebSocketMessage{
		CellID:    event.CellID,
		State:     event.State,
		Cells:     event.Cells,
		Timestamp: event.Timestamp,
	}
	switch event.Type {
	case EventCellsUpdated:
		msg.Type = "cells_updated"
	default:
		msg.Type = "status"
	}
	return msg
}

// run is the hub's main loop.
func (h *WebSocketHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

			if h.logger != nil {
				h.logger.Info("WebSocket client connected", "client_id", client.ID)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

			if h.logger != nil {
				h.logger.Info("WebSocket client disconnected", "client_id", client.ID)
			}

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full: drop the client.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register registers a new client.
func (h *WebSocketHub) Register(client *WebSocketClient) {
	h.register <- client
}

// Unregister removes a client.
func (h *WebSocketHub) Unregister(client *WebSocketClient) {
	h.unregister <- client
}

// Broadcast sends a message to every connected client.
func (h *WebSocketHub) Broadcast(message []byte) {
	h.broadcast <- message
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
