package repository

import (
	"context"

	"catering-platform/internal/domain/model"
)

// DishRepository is the boundary to the menu catalog collaborator.
type DishRepository interface {
	ListAvailable(ctx context.Context, tx Tx) ([]*model.Dish, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Dish, error)
	FindByName(ctx context.Context, tx Tx, name string) (*model.Dish, error)
}
