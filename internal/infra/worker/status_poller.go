package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/domain/ports/repository"
	"catering-platform/internal/infra/metrics"
)

// StatusPoller periodically asks each provider where its confirmed orders
// stand and advances delivered ones to fulfilled. It is the only component
// that moves an order out of confirmed without user action.
type StatusPoller struct {
	orders   repository.OrderRepository
	registry adapter.ProviderRegistry
	notifier adapter.Notifier
	tracker  StatusTracker
	interval time.Duration
	batch    int
	log      *zerolog.Logger
}

func NewStatusPoller(
	orders repository.OrderRepository,
	registry adapter.ProviderRegistry,
	notifier adapter.Notifier,
	tracker StatusTracker,
	interval time.Duration,
	log *zerolog.Logger,
) *StatusPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &StatusPoller{
		orders:   orders,
		registry: registry,
		notifier: notifier,
		tracker:  tracker,
		interval: interval,
		batch:    100,
		log:      log,
	}
}

func (p *StatusPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.log.Info().Dur("interval", p.interval).Msg("status poller started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *StatusPoller) sweep(ctx context.Context) {
	orders, err := p.orders.ListByStatus(ctx, nil, model.OrderConfirmed, p.batch)
	if err != nil {
		p.log.Error().Err(err).Msg("confirmed order sweep failed")
		return
	}
	for _, order := range orders {
		p.poll(ctx, order)
	}
}

func (p *StatusPoller) poll(ctx context.Context, order *model.Order) {
	log := p.log.With().Str("order_id", order.ID).Str("provider", order.Provider).Logger()

	prov, ok := p.registry.Get(order.Provider)
	if !ok || order.ProviderRef == "" {
		return
	}
	status, err := prov.PollStatus(ctx, order.ProviderRef)
	if err != nil {
		log.Debug().Err(err).Msg("status poll failed, will retry next sweep")
		return
	}
	if p.tracker != nil {
		_ = p.tracker.RecordStatus(ctx, order.ID, order.Provider, order.ProviderRef, string(status))
	}

	switch status {
	case adapter.ProviderDelivered:
		if err := p.orders.Transition(ctx, nil, order.ID, model.OrderConfirmed, model.OrderFulfilled); err != nil {
			// Lost to a concurrent cancel; the next sweep will not see it.
			log.Debug().Err(err).Msg("fulfill transition lost")
			return
		}
		order.Status = model.OrderFulfilled
		metrics.IncOrderTerminal(string(model.OrderFulfilled))
		log.Info().Msg("order fulfilled")
		p.notifyTerminal(ctx, order, log)
	case adapter.ProviderCancelled:
		if err := p.orders.Transition(ctx, nil, order.ID, model.OrderConfirmed, model.OrderCancelled); err != nil {
			log.Debug().Err(err).Msg("cancel transition lost")
			return
		}
		order.Status = model.OrderCancelled
		metrics.IncOrderTerminal(string(model.OrderCancelled))
		log.Info().Msg("order cancelled at provider")
		p.notifyTerminal(ctx, order, log)
	}
}

func (p *StatusPoller) notifyTerminal(ctx context.Context, order *model.Order, log zerolog.Logger) {
	if p.tracker != nil {
		// The cached provider view is meaningless for a terminal order.
		_ = p.tracker.Forget(ctx, order.ID)
	}
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyOrderTerminal(ctx, order); err != nil {
		log.Warn().Err(err).Msg("terminal notification failed")
	}
}
