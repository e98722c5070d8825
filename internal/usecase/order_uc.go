// File: internal/usecase/order_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

type OrderUseCase interface {
	// Place turns a detached draft into a persisted order in
	// dispatch_pending and puts its task on the queue. When the draft names
	// a courier, a second linked courier order is placed alongside it.
	Place(ctx context.Context, orderID string, user *model.User, draft *model.DraftOrder) (*model.Order, error)

	Get(ctx context.Context, userID, orderID string) (*model.Order, error)
	ListForUser(ctx context.Context, userID string) ([]*model.Order, error)
	Menu(ctx context.Context) ([]*model.Dish, error)

	// Cancel honors a user cancellation where the machine still allows it:
	// locally while dispatch is pending, through the provider while the
	// provider has not started fulfillment. Anything later is ErrTooLate.
	Cancel(ctx context.Context, userID, orderID string) error
}

type orderUC struct {
	orders   repository.OrderRepository
	dishes   repository.DishRepository
	queue    repository.TaskQueue
	registry adapter.ProviderRegistry
	txm      repository.TransactionManager
	log      *zerolog.Logger
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	dishes repository.DishRepository,
	queue repository.TaskQueue,
	registry adapter.ProviderRegistry,
	txm repository.TransactionManager,
	log *zerolog.Logger,
) *orderUC {
	return &orderUC{
		orders:   orders,
		dishes:   dishes,
		queue:    queue,
		registry: registry,
		txm:      txm,
		log:      log,
	}
}

func (o *orderUC) Place(ctx context.Context, orderID string, user *model.User, draft *model.DraftOrder) (*model.Order, error) {
	if draft == nil || len(draft.Items) == 0 {
		return nil, domain.ErrEmptyDraft
	}
	provider, err := o.itemsProvider(ctx, draft.Items)
	if err != nil {
		return nil, err
	}

	priority := user.OrderPriority(draft.Expedited)
	order := model.NewOrder(orderID, user.ID, provider, draft.Items, priority)
	order.ETA = draft.ETA
	if err := order.TransitionTo(model.OrderDispatchPending); err != nil {
		return nil, err
	}

	var courier *model.Order
	if draft.Provider != "" {
		if _, ok := o.registry.Get(draft.Provider); !ok {
			return nil, fmt.Errorf("%w: unknown courier %q", domain.ErrInvalidArgument, draft.Provider)
		}
		courier = model.NewOrder(ulid.Make().String(), user.ID, draft.Provider, draft.Items, priority)
		courier.ETA = draft.ETA
		if err := courier.TransitionTo(model.OrderDispatchPending); err != nil {
			return nil, err
		}
	}

	err = o.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := o.orders.Save(ctx, tx, order); err != nil {
			return err
		}
		if courier != nil {
			return o.orders.Save(ctx, tx, courier)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := o.queue.Enqueue(ctx, model.NewDispatchTask(ulid.Make().String(), order)); err != nil {
		return nil, err
	}
	if courier != nil {
		if err := o.queue.Enqueue(ctx, model.NewDispatchTask(ulid.Make().String(), courier)); err != nil {
			// The food order is already on its way; the courier order stays
			// in dispatch_pending for a manual or scripted requeue.
			o.log.Error().Err(err).Str("order_id", courier.ID).Msg("courier task enqueue failed")
		}
	}
	o.log.Info().Str("order_id", order.ID).Str("provider", provider).Str("priority", string(priority)).Msg("order placed")
	return order, nil
}

func (o *orderUC) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := o.orders.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

func (o *orderUC) ListForUser(ctx context.Context, userID string) ([]*model.Order, error) {
	return o.orders.FindByUser(ctx, nil, userID)
}

func (o *orderUC) Menu(ctx context.Context) ([]*model.Dish, error) {
	return o.dishes.ListAvailable(ctx, nil)
}

func (o *orderUC) Cancel(ctx context.Context, userID, orderID string) error {
	order, err := o.Get(ctx, userID, orderID)
	if err != nil {
		return err
	}

	switch order.Status {
	case model.OrderCancelled:
		return nil // idempotent

	case model.OrderDispatchPending:
		// Race with a claiming worker: the CAS decides. Losing it means the
		// order went in flight; the caller can retry once it settles.
		if err := o.orders.Transition(ctx, nil, order.ID, model.OrderDispatchPending, model.OrderCancelled); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return domain.ErrTooLate
			}
			return err
		}
		o.log.Info().Str("order_id", order.ID).Msg("order cancelled before dispatch")
		return nil

	case model.OrderConfirmed:
		return o.cancelAtProvider(ctx, order)

	case model.OrderQuarantined:
		return domain.ErrOrderQuarantined

	default:
		return domain.ErrTooLate
	}
}

func (o *orderUC) cancelAtProvider(ctx context.Context, order *model.Order) error {
	prov, ok := o.registry.Get(order.Provider)
	if !ok || order.ProviderRef == "" {
		return domain.ErrTooLate
	}
	status, err := prov.PollStatus(ctx, order.ProviderRef)
	if err != nil {
		return err
	}
	if status != adapter.ProviderInProgress {
		return domain.ErrTooLate
	}
	outcome, err := prov.Cancel(ctx, order.ProviderRef)
	if err != nil {
		return err
	}
	switch outcome {
	case adapter.CancelDone:
		if err := o.orders.Transition(ctx, nil, order.ID, model.OrderConfirmed, model.OrderCancelled); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				// The poller already moved it; the provider cancelled anyway,
				// so the poller's next sweep reconciles the state.
				return nil
			}
			return err
		}
		o.log.Info().Str("order_id", order.ID).Msg("order cancelled at provider")
		return nil
	case adapter.CancelTooLate:
		return domain.ErrTooLate
	default:
		return fmt.Errorf("%w: cancel outcome unknown", domain.ErrProviderUnavailable)
	}
}

// itemsProvider resolves the fulfillment provider from the dishes on the
// draft. All items must come from one provider.
func (o *orderUC) itemsProvider(ctx context.Context, items []model.LineItem) (string, error) {
	provider := ""
	for _, it := range items {
		if it.Quantity <= 0 {
			return "", fmt.Errorf("%w: quantity for dish %s", domain.ErrInvalidArgument, it.DishID)
		}
		dish, err := o.dishes.FindByID(ctx, nil, it.DishID)
		if err != nil {
			return "", fmt.Errorf("dish %s: %w", it.DishID, err)
		}
		if !dish.Available {
			return "", fmt.Errorf("%w: dish %s unavailable", domain.ErrInvalidArgument, dish.Name)
		}
		switch provider {
		case "", dish.Provider:
			provider = dish.Provider
		default:
			return "", fmt.Errorf("%w: mixed providers on one order", domain.ErrInvalidArgument)
		}
	}
	if _, ok := o.registry.Get(provider); !ok {
		return "", fmt.Errorf("%w: no adapter for provider %q", domain.ErrInvalidArgument, provider)
	}
	return provider, nil
}
