// Package hub implements the broadcast channel: a single shared room fanning
// accepted messages out to every connected client.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"chatroom/internal/domain"
	"chatroom/internal/service"
)

// MessageService is the slice of the chat service the hub needs.
type MessageService interface {
	PostMessage(ctx context.Context, authorID uint, content string) (*domain.Message, error)
}

// HubMessage is the event type carried on the hub's internal channel.
type HubMessage struct {
	Type    string // "register", "unregister", "message"
	UserID  uint
	Client  *Client
	RawData []byte // raw websocket frame, "message" only
}

// Inbound is the client→server event: a message submission on the current
// authenticated connection.
type Inbound struct {
	Content string `json:"content"`
}

// Outbound is the server→clients event broadcast for every accepted message.
type Outbound struct {
	Content  string `json:"content"`
	Nickname string `json:"nickname"`
}

// ErrorNotice is acknowledged to the submitting client only, never broadcast.
type ErrorNotice struct {
	Error string `json:"error"`
}

// Hub maintains the set of connected clients and serializes message handling.
// Message events are processed inline in Run, one at a time, so messages are
// broadcast in exactly the order they are accepted.
type Hub struct {
	messageChan chan HubMessage
	done        chan struct{}

	clients   map[*Client]bool
	clientsMu sync.RWMutex

	chatService MessageService

	stopOnce sync.Once
}

// NewHub creates a Hub.
func NewHub(chatService MessageService) *Hub {
	if chatService == nil {
		panic("MessageService cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		done:        make(chan struct{}),
		clients:     make(map[*Client]bool),
		chatService: chatService,
	}
}

// Run drives the hub event loop. It runs in its own goroutine and exits when
// Stop is called.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running")

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			case "message":
				h.handleClientMessage(msg)
			default:
				log.Warnf("Received unknown hub message type %q from user %d", msg.Type, msg.UserID)
			}
		case <-h.done:
			log.Info("Hub stopped")
			return
		}
	}
}

// Stop shuts the event loop down. The event channel is never closed: client
// pumps on hijacked websocket connections outlive the HTTP server's shutdown
// and may still enqueue, so the hub signals completion on a separate channel
// and late events are simply rejected.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// QueueMessage enqueues an event without blocking. Returns false when the hub
// is stopped or saturated and the event was dropped.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.done:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"user_id":      msg.UserID,
		}).Debug("Hub stopped, dropping message")
		return false
	default:
	}

	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"user_id":      msg.UserID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.clientsMu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.clientsMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"user_id":   client.UserID(),
		"conn_id":   client.ConnID(),
		"connected": count,
	}).Info("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	h.clientsMu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.clientsMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"user_id":   client.UserID(),
		"conn_id":   client.ConnID(),
		"connected": count,
	}).Info("Client unregistered")
}

// handleClientMessage validates the submission through the chat service and,
// on acceptance, broadcasts it to every connected client including the
// sender. The author identity is the one bound to the connection's session;
// nothing client-supplied is trusted.
func (h *Hub) handleClientMessage(msg HubMessage) {
	logCtx := logrus.WithFields(logrus.Fields{
		"user_id": msg.UserID,
		"conn_id": msg.Client.ConnID(),
	})

	var in Inbound
	if err := json.Unmarshal(msg.RawData, &in); err != nil {
		logCtx.WithError(err).Warn("Malformed message frame")
		h.sendError(msg.Client, "malformed message")
		return
	}

	// Persistence and snapshot export happen before any client sees the
	// message; the hub never cancels an accepted post.
	message, err := h.chatService.PostMessage(context.Background(), msg.UserID, in.Content)
	if err != nil {
		logCtx.WithError(err).Warn("Message rejected")
		h.sendError(msg.Client, rejectionReason(err))
		return
	}

	payload, err := json.Marshal(Outbound{
		Content:  message.Content,
		Nickname: message.User.Nickname,
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal broadcast payload")
		return
	}
	h.broadcast(payload)
}

// broadcast delivers the payload to all connected clients, sender included.
// Delivery is best-effort and at-most-once: a client whose send buffer is
// full is skipped rather than allowed to stall the room.
func (h *Hub) broadcast(payload []byte) {
	h.clientsMu.RLock()
	recipients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		recipients = append(recipients, client)
	}
	h.clientsMu.RUnlock()

	for _, client := range recipients {
		select {
		case client.send <- payload:
		default:
			logrus.WithFields(logrus.Fields{
				"user_id": client.UserID(),
				"conn_id": client.ConnID(),
			}).Warn("Client send channel full during broadcast, skipping")
		}
	}
}

func (h *Hub) sendError(client *Client, reason string) {
	if client == nil {
		return
	}
	payload, err := json.Marshal(ErrorNotice{Error: reason})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidContent):
		return service.ErrInvalidContent.Error()
	case errors.Is(err, service.ErrUnknownAuthor):
		return "not authorized to post"
	case errors.Is(err, service.ErrSnapshotFailed):
		return "message could not be saved, please retry"
	default:
		return "message could not be saved, please retry"
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
