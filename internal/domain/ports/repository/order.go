package repository

import (
	"context"

	"catering-platform/internal/domain/model"
)

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, order *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	FindByUser(ctx context.Context, tx Tx, userID string) ([]*model.Order, error)

	// Transition applies a compare-and-set state change: the update only
	// succeeds when the stored status still equals `from`. This is what makes
	// dispatch_in_flight act as a mutual-exclusion flag under concurrent
	// workers. Returns domain.ErrInvalidTransition when the CAS misses.
	Transition(ctx context.Context, tx Tx, id string, from, to model.OrderStatus) error

	// UpdateDispatch persists attempt counters, provider ref and failure
	// reason after a submission attempt.
	UpdateDispatch(ctx context.Context, tx Tx, order *model.Order) error

	// ListByStatus feeds the status poller with confirmed orders.
	ListByStatus(ctx context.Context, tx Tx, status model.OrderStatus, limit int) ([]*model.Order, error)
}
