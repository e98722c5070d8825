package repository

import (
	"context"

	"catering-platform/internal/domain/model"
)

// UserRepository is the boundary to the account store collaborator.
type UserRepository interface {
	Save(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}
