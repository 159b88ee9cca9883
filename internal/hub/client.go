package hub

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Content is capped at 200
	// characters; this leaves headroom for the JSON envelope.
	maxMessageSize = 1024
)

// Client is one authenticated websocket connection attached to the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	connID string // correlates the two pumps in logs
	send   chan []byte
}

// NewClient creates a Client bound to the authenticated user of the upgraded
// connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		connID: uuid.NewString(),
		send:   make(chan []byte, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump pumps frames from the websocket into the hub. It exits on any
// read error and requests its own unregistration.
func (c *Client) ReadPump() {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "conn_id": c.connID})

	defer func() {
		unregister := HubMessage{Type: "unregister", UserID: c.userID, Client: c}
		select {
		case c.hub.messageChan <- unregister:
		case <-c.hub.done:
			// The hub already stopped; nothing left to unregister from.
		case <-time.After(time.Second):
			logCtx.Warn("Timeout sending unregister message to hub")
		}
		c.conn.Close()
		logCtx.Info("readPump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.TextMessage {
			logCtx.Debugf("Ignoring non-text message type %d", messageType)
			continue
		}

		if !c.hub.QueueMessage(HubMessage{
			Type:    "message",
			UserID:  c.userID,
			Client:  c,
			RawData: message,
		}) {
			logCtx.Warn("Hub saturated, client message dropped")
		}
	}
}

// WritePump pumps frames from the send channel to the websocket and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "conn_id": c.connID})
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logCtx.Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel during unregistration.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logCtx.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logCtx.WithError(err).Warn("Failed to send ping")
				return
			}
		}
	}
}

func (c *Client) UserID() uint   { return c.userID }
func (c *Client) ConnID() string { return c.connID }
func (c *Client) CloseConn()     { c.conn.Close() }
