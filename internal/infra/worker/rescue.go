package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
	"catering-platform/internal/infra/metrics"
)

// RescueSweeper re-enqueues dispatch_pending orders whose backoff timer
// died with its process. A retry scheduled by the dispatcher only lives in
// memory until the delay elapses; after a restart the order sits in
// dispatch_pending with no task on the queue. The sweeper picks those up
// once they are older than any legal backoff window.
//
// A rescue racing a still-armed timer just produces a second task; the
// dispatch_pending→dispatch_in_flight CAS lets exactly one of them claim
// the order.
type RescueSweeper struct {
	orders   repository.OrderRepository
	ledger   repository.IdempotencyLedger
	queue    repository.TaskQueue
	staleAge time.Duration
	interval time.Duration
	batch    int
	log      *zerolog.Logger
}

func NewRescueSweeper(
	orders repository.OrderRepository,
	ledger repository.IdempotencyLedger,
	queue repository.TaskQueue,
	staleAge, interval time.Duration,
	log *zerolog.Logger,
) *RescueSweeper {
	if staleAge <= 0 {
		staleAge = time.Minute
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &RescueSweeper{
		orders:   orders,
		ledger:   ledger,
		queue:    queue,
		staleAge: staleAge,
		interval: interval,
		batch:    100,
		log:      log,
	}
}

func (s *RescueSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", s.interval).Dur("stale_age", s.staleAge).Msg("rescue sweeper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RescueSweeper) sweep(ctx context.Context) {
	orders, err := s.orders.ListByStatus(ctx, nil, model.OrderDispatchPending, s.batch)
	if err != nil {
		s.log.Error().Err(err).Msg("pending order sweep failed")
		return
	}
	cutoff := time.Now().Add(-s.staleAge)
	for _, order := range orders {
		// ListByStatus returns oldest transitions first.
		if order.TransitionAt.After(cutoff) {
			return
		}
		s.rescue(ctx, order)
	}
}

func (s *RescueSweeper) rescue(ctx context.Context, order *model.Order) {
	log := s.log.With().Str("order_id", order.ID).Str("provider", order.Provider).Logger()

	task := model.NewDispatchTask(newTaskID(), order)
	task.Attempt = order.Attempts
	task.AttemptEpoch = s.nextEpoch(ctx, order.ID)

	// Stamp the order before enqueueing so the next sweep skips it even if
	// the task lingers on a busy queue.
	order.TransitionAt = time.Now()
	if err := s.orders.UpdateDispatch(ctx, nil, order); err != nil {
		log.Error().Err(err).Msg("failed to stamp rescued order")
		return
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		log.Error().Err(err).Msg("failed to enqueue rescued task")
		return
	}
	metrics.IncDispatchRetry("rescued")
	log.Warn().Int("epoch", task.AttemptEpoch).Msg("re-enqueued stranded order")
}

// nextEpoch resumes the order's epoch sequence from the ledger so a rescued
// attempt never reuses a finalized fingerprint.
func (s *RescueSweeper) nextEpoch(ctx context.Context, orderID string) int {
	recs, err := s.ledger.FindByOrder(ctx, nil, orderID)
	if err != nil {
		return 0
	}
	next := 0
	for _, r := range recs {
		if r.Epoch >= next {
			next = r.Epoch + 1
		}
	}
	return next
}
