// Package repository defines the storage contracts the services depend on.
package repository

import (
	"context"

	"chatroom/internal/domain"
)

// UserRepository stores and retrieves user accounts.
type UserRepository interface {
	// Create inserts a new user. The unique indexes on email and nickname
	// are enforced by the storage layer; violations come back as
	// ErrEmailTaken or ErrNicknameTaken with no partial insert.
	Create(ctx context.Context, user *domain.User) error

	// FindByLogin looks a user up by email or nickname; the same identifier
	// string is matched against both columns. Returns ErrUserNotFound when
	// neither matches.
	FindByLogin(ctx context.Context, identifier string) (*domain.User, error)

	// FindByID returns the user with the given primary key or ErrUserNotFound.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// FindAllWithMessages returns every user with its messages preloaded in
	// insertion order. Used by the snapshot exporter.
	FindAllWithMessages(ctx context.Context) ([]domain.User, error)
}
