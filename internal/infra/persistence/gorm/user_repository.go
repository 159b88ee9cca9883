// Package gormpersistence implements the repository interfaces on GORM.
package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"chatroom/internal/domain"
	"chatroom/internal/repository"
)

// GormUserRepository is the GORM implementation of repository.UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

// Create inserts a new user row. Unique index violations are mapped to the
// field-specific repository errors so callers can tell the user which field
// collided.
func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if field, ok := duplicateField(err); ok {
			switch field {
			case "email":
				return repository.ErrEmailTaken
			case "nickname":
				return repository.ErrNicknameTaken
			}
		}
		return fmt.Errorf("gorm: create user (nickname: %s): %w", user.Nickname, err)
	}
	return nil
}

// FindByLogin matches the identifier against email OR nickname, the way the
// login form supplies it.
func (r *GormUserRepository) FindByLogin(ctx context.Context, identifier string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR nickname = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by login: %w", err)
	}
	return &user, nil
}

// FindByID looks a user up by primary key.
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by id %d: %w", id, err)
	}
	return &user, nil
}

// FindAllWithMessages loads every user with its messages in insertion order.
func (r *GormUserRepository) FindAllWithMessages(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.id ASC")
		}).
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all users with messages: %w", err)
	}
	return users, nil
}

// duplicateField inspects a driver error for a unique constraint violation
// and reports which of the two unique user columns collided. Error text is
// driver-specific, so all supported engines are checked.
func duplicateField(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := err.Error()
	isDuplicate := strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Duplicate entry") || // MySQL
		strings.Contains(msg, "duplicate key value violates unique constraint") // PostgreSQL
	if !isDuplicate {
		return "", false
	}
	switch {
	case strings.Contains(msg, "email"):
		return "email", true
	case strings.Contains(msg, "nickname"):
		return "nickname", true
	}
	return "", true
}
