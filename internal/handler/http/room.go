package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chatroom/internal/service"
)

// RoomHandler serves the room view.
type RoomHandler struct {
	chatService *service.ChatService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(chatService *service.ChatService) *RoomHandler {
	if chatService == nil {
		panic("ChatService cannot be nil for RoomHandler")
	}
	return &RoomHandler{chatService: chatService}
}

// Index renders the room with all persisted messages in insertion order.
// Live updates arrive over the websocket afterwards.
func (h *RoomHandler) Index(c *gin.Context) {
	messages, err := h.chatService.ListMessages(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Room: failed to list messages")
		c.HTML(http.StatusInternalServerError, "room.html", gin.H{
			"Error": "Could not load messages. Please refresh.",
		})
		return
	}
	c.HTML(http.StatusOK, "room.html", gin.H{
		"Messages": messages,
		"Flash":    takeFlash(c),
	})
}
