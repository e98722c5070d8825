package worker

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/domain/ports/repository"
	"catering-platform/internal/infra/metrics"
)

// StatusTracker mirrors the provider-side view of an order into a hot cache.
// Optional: a nil tracker disables mirroring.
type StatusTracker interface {
	RecordStatus(ctx context.Context, orderID, provider, providerRef, status string) error
	// Forget drops the cached view once the order is terminal.
	Forget(ctx context.Context, orderID string) error
}

// Policy is the retry/backoff policy applied per task.
type Policy struct {
	MaxAttempts  int           // provider rejections before abandoned
	TransientCap int           // unavailable results before abandoned
	BackoffBase  time.Duration
	BackoffMax   time.Duration
}

// Dispatcher executes one dispatch attempt per task: claim the order, write
// the ledger record, call the provider, finalize the record, move the state
// machine. The ledger write always happens before the provider call; the
// state transition always happens after the result is known.
type Dispatcher struct {
	orders   repository.OrderRepository
	ledger   repository.IdempotencyLedger
	queue    repository.TaskQueue
	registry adapter.ProviderRegistry
	notifier adapter.Notifier
	tracker  StatusTracker
	policy   Policy
	log      *zerolog.Logger
}

func NewDispatcher(
	orders repository.OrderRepository,
	ledger repository.IdempotencyLedger,
	queue repository.TaskQueue,
	registry adapter.ProviderRegistry,
	notifier adapter.Notifier,
	tracker StatusTracker,
	policy Policy,
	log *zerolog.Logger,
) *Dispatcher {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.TransientCap <= 0 {
		policy.TransientCap = 5
	}
	if policy.BackoffBase <= 0 {
		policy.BackoffBase = 500 * time.Millisecond
	}
	if policy.BackoffMax <= 0 {
		policy.BackoffMax = 30 * time.Second
	}
	return &Dispatcher{
		orders:   orders,
		ledger:   ledger,
		queue:    queue,
		registry: registry,
		notifier: notifier,
		tracker:  tracker,
		policy:   policy,
		log:      log,
	}
}

// Process handles one dequeued task. Errors are absorbed here: a task never
// kills its worker.
func (d *Dispatcher) Process(ctx context.Context, task *model.DispatchTask) {
	log := d.log.With().Str("task_id", task.ID).Str("order_id", task.OrderID).Str("provider", task.Provider).Logger()

	order, err := d.orders.FindByID(ctx, nil, task.OrderID)
	if err != nil {
		log.Error().Err(err).Msg("order lookup failed, dropping task")
		metrics.IncDispatchTask(task.Provider, "skipped")
		return
	}

	// Claim. The CAS on dispatch_pending -> dispatch_in_flight is the
	// mutual-exclusion point: losing it means another worker holds this
	// order, or the user cancelled while the task was queued.
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchPending, model.OrderDispatchInFlight); err != nil {
		log.Debug().Err(err).Msg("claim lost, skipping task")
		metrics.IncDispatchTask(task.Provider, "skipped")
		return
	}
	order.Status = model.OrderDispatchInFlight

	prov, ok := d.registry.Get(task.Provider)
	if !ok {
		d.quarantine(ctx, order, "no adapter for provider "+task.Provider)
		return
	}

	fp := task.Fingerprint()
	rec := model.NewIdempotencyRecord(task)
	prev, err := d.ledger.Begin(ctx, nil, rec)
	if errors.Is(err, domain.ErrDuplicateSubmission) {
		switch prev.State {
		case model.IdempotencySucceeded:
			// Crash after the provider accepted but before we recorded the
			// transition. The ledger absorbs the duplicate: no second call.
			log.Info().Str("fingerprint", fp).Msg("duplicate fingerprint already succeeded, absorbing")
			metrics.IncDispatchTask(task.Provider, "duplicate")
			d.confirm(ctx, order, prev.ProviderRef, log)
			return
		case model.IdempotencyFailed:
			// Finalized failure redelivered; retry under a fresh epoch.
			d.handleUnavailable(ctx, order, task, log)
			return
		default:
			// Pending: the previous attempt died mid-call with an unknown
			// outcome. Submit is fingerprint-idempotent, so repeating the
			// same fingerprint cannot double-order.
			log.Warn().Str("fingerprint", fp).Msg("resuming attempt with pending ledger record")
		}
	} else if err != nil {
		log.Error().Err(err).Msg("ledger write failed, retrying later")
		d.release(ctx, order, log)
		d.requeue(ctx, task.NextEpoch(newTaskID()), d.backoff(order.Transient), "transient")
		return
	}

	res, err := prov.Submit(ctx, order, fp)
	if err != nil {
		log.Error().Err(err).Msg("adapter error treated as unavailable")
		res = adapter.SubmitResult{Outcome: adapter.SubmitUnavailable}
	}

	switch res.Outcome {
	case adapter.SubmitAccepted:
		if err := d.ledger.MarkSucceeded(ctx, nil, fp, res.ProviderRef); err != nil {
			log.Error().Err(err).Msg("failed to finalize ledger record")
		}
		metrics.IncDispatchTask(task.Provider, "accepted")
		order.ProviderRef = res.ProviderRef
		d.confirm(ctx, order, res.ProviderRef, log)

	case adapter.SubmitRejected:
		reason := res.Reason
		if reason == "" {
			reason = domain.ErrProviderRejected.Error()
		}
		if err := d.ledger.MarkFailed(ctx, nil, fp, reason); err != nil {
			log.Error().Err(err).Msg("failed to finalize ledger record")
		}
		metrics.IncDispatchTask(task.Provider, "rejected")
		d.handleRejected(ctx, order, task, reason, log)

	default: // unavailable
		if err := d.ledger.MarkFailed(ctx, nil, fp, "provider unavailable"); err != nil {
			log.Error().Err(err).Msg("failed to finalize ledger record")
		}
		metrics.IncDispatchTask(task.Provider, "unavailable")
		d.handleUnavailable(ctx, order, task, log)
	}
}

func (d *Dispatcher) confirm(ctx context.Context, order *model.Order, providerRef string, log zerolog.Logger) {
	order.ProviderRef = providerRef
	if err := d.orders.UpdateDispatch(ctx, nil, order); err != nil {
		log.Error().Err(err).Msg("failed to persist provider ref")
	}
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchInFlight, model.OrderConfirmed); err != nil {
		d.quarantine(ctx, order, "confirm transition refused: "+err.Error())
		return
	}
	if d.tracker != nil {
		_ = d.tracker.RecordStatus(ctx, order.ID, order.Provider, providerRef, string(adapter.ProviderInProgress))
	}
	log.Info().Str("provider_ref", providerRef).Msg("order confirmed at provider")
}

func (d *Dispatcher) handleRejected(ctx context.Context, order *model.Order, task *model.DispatchTask, reason string, log zerolog.Logger) {
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchInFlight, model.OrderDispatchFailed); err != nil {
		d.quarantine(ctx, order, "reject transition refused: "+err.Error())
		return
	}
	order.Attempts++
	order.FailReason = reason
	if err := d.orders.UpdateDispatch(ctx, nil, order); err != nil {
		log.Error().Err(err).Msg("failed to persist attempt counter")
	}

	if order.Attempts >= d.policy.MaxAttempts {
		d.abandon(ctx, order, log)
		return
	}
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchFailed, model.OrderDispatchPending); err != nil {
		d.quarantine(ctx, order, "retry transition refused: "+err.Error())
		return
	}
	metrics.IncDispatchRetry("rejected")
	delay := d.backoff(order.Attempts - 1)
	log.Info().Int("attempt", order.Attempts).Dur("backoff", delay).Msg("provider rejected, retrying")
	d.requeue(ctx, task.NextAttempt(newTaskID()), delay, "rejected")
}

func (d *Dispatcher) handleUnavailable(ctx context.Context, order *model.Order, task *model.DispatchTask, log zerolog.Logger) {
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchInFlight, model.OrderDispatchFailed); err != nil {
		d.quarantine(ctx, order, "transient transition refused: "+err.Error())
		return
	}
	order.Transient++
	if err := d.orders.UpdateDispatch(ctx, nil, order); err != nil {
		log.Error().Err(err).Msg("failed to persist transient counter")
	}

	// Transient failures do not consume the rejection budget, but they get
	// their own cap so a dead provider cannot spin forever.
	if order.Transient >= d.policy.TransientCap {
		order.FailReason = "provider unavailable"
		d.abandon(ctx, order, log)
		return
	}
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchFailed, model.OrderDispatchPending); err != nil {
		d.quarantine(ctx, order, "retry transition refused: "+err.Error())
		return
	}
	metrics.IncDispatchRetry("transient")
	delay := d.backoff(order.Transient - 1)
	log.Info().Int("transient", order.Transient).Dur("backoff", delay).Msg("provider unavailable, retrying")
	d.requeue(ctx, task.NextEpoch(newTaskID()), delay, "transient")
}

func (d *Dispatcher) abandon(ctx context.Context, order *model.Order, log zerolog.Logger) {
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchFailed, model.OrderAbandoned); err != nil {
		d.quarantine(ctx, order, "abandon transition refused: "+err.Error())
		return
	}
	order.Status = model.OrderAbandoned
	metrics.IncOrderTerminal(string(model.OrderAbandoned))
	log.Warn().Int("attempts", order.Attempts).Int("transient", order.Transient).Msg("order abandoned")
	d.notify(ctx, order, log)
}

// release puts a claimed order back to dispatch_pending without touching
// any counters, for failures on our side rather than the provider's.
func (d *Dispatcher) release(ctx context.Context, order *model.Order, log zerolog.Logger) {
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchInFlight, model.OrderDispatchFailed); err != nil {
		d.quarantine(ctx, order, "release transition refused: "+err.Error())
		return
	}
	if err := d.orders.Transition(ctx, nil, order.ID, model.OrderDispatchFailed, model.OrderDispatchPending); err != nil {
		d.quarantine(ctx, order, "release transition refused: "+err.Error())
	}
}

// quarantine is the invariant-violation path: fatal to this order only,
// never retried, surfaced for operator attention. It writes the status
// directly because the machine, by definition, no longer describes what
// happened to this order.
func (d *Dispatcher) quarantine(ctx context.Context, order *model.Order, reason string) {
	d.log.Error().Str("order_id", order.ID).Str("reason", reason).Msg("order quarantined")
	order.Status = model.OrderQuarantined
	order.FailReason = reason
	if err := d.orders.Save(ctx, nil, order); err != nil {
		d.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to persist quarantine")
	}
	metrics.IncOrderTerminal(string(model.OrderQuarantined))
}

func (d *Dispatcher) notify(ctx context.Context, order *model.Order, log zerolog.Logger) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.NotifyOrderTerminal(ctx, order); err != nil {
		log.Warn().Err(err).Msg("terminal notification failed")
	}
}

// requeue schedules the task back onto the queue after the backoff delay.
func (d *Dispatcher) requeue(ctx context.Context, task *model.DispatchTask, delay time.Duration, kind string) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := d.queue.Enqueue(ctx, task); err != nil {
			d.log.Error().Err(err).Str("order_id", task.OrderID).Str("kind", kind).Msg("re-enqueue failed")
		}
	}()
}

// backoff computes base * 2^n, capped.
func (d *Dispatcher) backoff(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	delay := d.policy.BackoffBase
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= d.policy.BackoffMax {
			return d.policy.BackoffMax
		}
	}
	if delay > d.policy.BackoffMax {
		delay = d.policy.BackoffMax
	}
	return delay
}

func newTaskID() string { return ulid.Make().String() }
