package gormpersistence

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"chatroom/internal/domain"
	"chatroom/internal/repository"
)

// GormMessageRepository is the GORM implementation of repository.MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a GormMessageRepository.
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Create inserts a message row. The users foreign key guarantees the author
// exists at insert time.
func (r *GormMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	// Omit the association so GORM does not try to upsert the preset User
	// value alongside the message row.
	err := r.db.WithContext(ctx).Omit("User").Create(message).Error
	if err != nil {
		if isForeignKeyError(err) {
			return repository.ErrForeignKey
		}
		return fmt.Errorf("gorm: create message (author: %d): %w", message.UserID, err)
	}
	return nil
}

// ListAll returns all messages in insertion order with authors preloaded for
// nickname display.
func (r *GormMessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("messages.id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages: %w", err)
	}
	return messages, nil
}

func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || // SQLite
		strings.Contains(msg, "a foreign key constraint fails") || // MySQL
		strings.Contains(msg, "violates foreign key constraint") // PostgreSQL
}
