package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatroom/internal/domain"
)

// MessageRepository is a mock implementation of repository.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	args := m.Called(ctx)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}
