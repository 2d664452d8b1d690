package observer

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// NewWebSocketClient creates a new client around an upgraded connection.
func NewWebSocketClient(id string, conn *websocket.Conn, hub *WebSocketHub) *WebSocketClient {
	return &WebSocketClient{
		ID:   id,
		conn: conn,
		send: make(chan []byte, 256),
		hub:  hub,
	}
}

// Send queues a message for this client, dropping it when the buffer is
// full.
func (c *WebSocketClient) Send(message []byte) {
	select {
	case c.send <- message:
	default:
	}
}

// ReadPump consumes messages from the connection until it closes. Incoming
// payloads are ignored apart from keeping the read deadline fresh; the
// notebook protocol is server-to-client.
func (c *WebSocketClient) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.hub.logger != nil {
					c.hub.logger.Error("WebSocket read error",
						"client_id", c.ID,
						"error", err,
					)
				}
			}
			return
		}
	}
}

// WritePump drains the send queue onto the connection and keeps it alive
// with periodic pings.
func (c *WebSocketClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
