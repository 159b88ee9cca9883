package repository

import (
	"context"

	"chatroom/internal/domain"
)

// MessageRepository stores and retrieves chat messages.
type MessageRepository interface {
	// Create inserts a new message. The author referenced by message.UserID
	// must exist; a foreign key violation comes back as ErrForeignKey.
	Create(ctx context.Context, message *domain.Message) error

	// ListAll returns every message in insertion order with the authoring
	// user preloaded.
	ListAll(ctx context.Context) ([]domain.Message, error)
}
