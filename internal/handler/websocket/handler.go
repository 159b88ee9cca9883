// Package websocket upgrades session-gated HTTP requests into hub clients.
package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"chatroom/internal/hub"
	"chatroom/internal/middleware"
)

// Handler owns the upgrade path onto the broadcast channel.
type Handler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewHandler creates a websocket Handler. checkOrigin validates the Origin
// header; pass nil to accept same-host browsers only.
func NewHandler(h *hub.Hub, checkOrigin func(r *http.Request) bool) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}
	if checkOrigin == nil {
		checkOrigin = sameHostOrigin
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		hub: h,
	}
}

// HandleConnection upgrades the request and attaches the client to the hub.
// The session gate runs before this handler; a connection with no bound user
// never reaches the upgrade.
func (h *Handler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		logrus.Warn("WS handler: no authenticated user bound to connection")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		logCtx.WithError(err).Error("WS handler: failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, userID)
	if !h.hub.QueueMessage(hub.HubMessage{
		Type:   "register",
		UserID: userID,
		Client: client,
	}) {
		logCtx.Error("WS handler: hub saturated, closing new connection")
		client.CloseConn()
		return
	}

	client.Run()
	logCtx.WithField("conn_id", client.ConnID()).Info("WS handler: client connected")
}

func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
