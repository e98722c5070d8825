package repository

import (
	"context"

	"catering-platform/internal/domain/model"
)

// IdempotencyLedger records submission attempts keyed by fingerprint.
type IdempotencyLedger interface {
	// Begin inserts a pending record for the fingerprint. When a record with
	// the same fingerprint already exists the previous attempt is returned
	// together with domain.ErrDuplicateSubmission so the caller can absorb
	// the duplicate instead of hitting the provider twice.
	Begin(ctx context.Context, tx Tx, rec *model.IdempotencyRecord) (*model.IdempotencyRecord, error)

	MarkSucceeded(ctx context.Context, tx Tx, fingerprint, providerRef string) error
	MarkFailed(ctx context.Context, tx Tx, fingerprint, reason string) error

	Find(ctx context.Context, tx Tx, fingerprint string) (*model.IdempotencyRecord, error)
	FindByOrder(ctx context.Context, tx Tx, orderID string) ([]*model.IdempotencyRecord, error)
}
