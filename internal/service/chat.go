package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"chatroom/internal/domain"
	"chatroom/internal/repository"
)

// ChatService persists messages and serves the room listing.
type ChatService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	exporter    Exporter
}

// NewChatService creates a ChatService.
func NewChatService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, exporter Exporter) *ChatService {
	if messageRepo == nil {
		panic("MessageRepository cannot be nil for ChatService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for ChatService")
	}
	if exporter == nil {
		panic("Exporter cannot be nil for ChatService")
	}
	return &ChatService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		exporter:    exporter,
	}
}

// PostMessage validates and persists a message for the given author, then
// re-exports the snapshot. The timestamp is assigned here, at persistence
// time, from the server clock. The returned message has User populated for
// nickname display. An export failure is returned to the caller so the
// broadcast can be suppressed and the client told to retry.
func (s *ChatService) PostMessage(ctx context.Context, authorID uint, content string) (*domain.Message, error) {
	logCtx := logrus.WithField("author_id", authorID)

	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, ErrInvalidContent
	}

	author, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Post rejected: author does not exist")
			return nil, ErrUnknownAuthor
		}
		logCtx.WithError(err).Error("Database error looking up author")
		return nil, ErrInternalServer
	}

	message := &domain.Message{
		Content:   content,
		UserID:    author.ID,
		Timestamp: time.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		if errors.Is(err, repository.ErrForeignKey) {
			return nil, ErrUnknownAuthor
		}
		logCtx.WithError(err).Error("Database error persisting message")
		return nil, ErrInternalServer
	}

	if err := s.exporter.Export(ctx); err != nil {
		logCtx.WithError(err).Error("Snapshot export failed after message post")
		return nil, ErrSnapshotFailed
	}

	message.User = *author
	logCtx.WithField("message_id", message.ID).Debug("Message persisted")
	return message, nil
}

// ListMessages returns every persisted message in insertion order, authors
// preloaded. Populates the room view on load.
func (s *ChatService) ListMessages(ctx context.Context) ([]domain.Message, error) {
	messages, err := s.messageRepo.ListAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("Database error listing messages")
		return nil, ErrInternalServer
	}
	return messages, nil
}
