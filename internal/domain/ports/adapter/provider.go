package adapter

import (
	"context"

	"catering-platform/internal/domain/model"
)

type SubmitOutcome string

const (
	SubmitAccepted    SubmitOutcome = "accepted"
	SubmitRejected    SubmitOutcome = "rejected"
	SubmitUnavailable SubmitOutcome = "unavailable"
)

type SubmitResult struct {
	Outcome     SubmitOutcome
	ProviderRef string // set when accepted
	Reason      string // set when rejected
}

type ProviderOrderStatus string

const (
	ProviderInProgress ProviderOrderStatus = "in_progress"
	ProviderDelivered  ProviderOrderStatus = "delivered"
	ProviderCancelled  ProviderOrderStatus = "cancelled"
	ProviderUnknown    ProviderOrderStatus = "unknown"
)

type CancelOutcome string

const (
	CancelDone    CancelOutcome = "cancelled"
	CancelTooLate CancelOutcome = "too_late"
	CancelUnknown CancelOutcome = "unknown"
)

// OrderProvider is the uniform capability every external fulfillment service
// is wrapped into. A timeout on any call maps to unavailable/unknown, never
// to success or failure; that distinction is what makes retry safe.
//
// Submit must be idempotent per fingerprint where the provider supports a
// native idempotency key; adapters for providers without one rely on the
// ledger check the dispatcher performs before calling.
type OrderProvider interface {
	Name() string
	Submit(ctx context.Context, order *model.Order, fingerprint string) (SubmitResult, error)
	PollStatus(ctx context.Context, providerRef string) (ProviderOrderStatus, error)
	Cancel(ctx context.Context, providerRef string) (CancelOutcome, error)
}

// ProviderRegistry selects the adapter for an order's target provider.
// Selection is by configured name, never by type inspection.
type ProviderRegistry interface {
	Get(name string) (OrderProvider, bool)
	Names() []string
}
