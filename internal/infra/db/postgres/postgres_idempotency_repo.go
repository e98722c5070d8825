package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
)

var _ repository.IdempotencyLedger = (*idempotencyRepo)(nil)

type idempotencyRepo struct {
	pool *pgxpool.Pool
}

func NewIdempotencyLedger(pool *pgxpool.Pool) *idempotencyRepo {
	return &idempotencyRepo{pool: pool}
}

const idemColumns = `fingerprint, order_id, provider, epoch, state, provider_ref, reason, created_at, updated_at`

// Begin inserts the pending record. The primary key on fingerprint is the
// duplicate detector: a second insert for the same fingerprint (crash and
// retry of the same attempt epoch) hits the unique violation, and the
// existing record is returned with ErrDuplicateSubmission.
func (r *idempotencyRepo) Begin(ctx context.Context, tx repository.Tx, rec *model.IdempotencyRecord) (*model.IdempotencyRecord, error) {
	const q = `
INSERT INTO idempotency_records (fingerprint, order_id, provider, epoch, state, provider_ref, reason, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,'','',$6,$7);`
	_, err := execSQL(ctx, r.pool, tx, q,
		rec.Fingerprint, rec.OrderID, rec.Provider, rec.Epoch, string(rec.State), rec.CreatedAt, rec.UpdatedAt)
	if err == nil {
		return rec, nil
	}
	if !isUniqueViolation(err) {
		return nil, fmt.Errorf("begin idempotency record: %w", err)
	}
	prev, findErr := r.Find(ctx, tx, rec.Fingerprint)
	if findErr != nil {
		return nil, findErr
	}
	return prev, domain.ErrDuplicateSubmission
}

func (r *idempotencyRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, fingerprint, providerRef string) error {
	const q = `UPDATE idempotency_records SET state='succeeded', provider_ref=$1, updated_at=$2 WHERE fingerprint=$3;`
	tag, err := execSQL(ctx, r.pool, tx, q, providerRef, time.Now(), fingerprint)
	if err != nil {
		return fmt.Errorf("finalize idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *idempotencyRepo) MarkFailed(ctx context.Context, tx repository.Tx, fingerprint, reason string) error {
	const q = `UPDATE idempotency_records SET state='failed', reason=$1, updated_at=$2 WHERE fingerprint=$3;`
	tag, err := execSQL(ctx, r.pool, tx, q, reason, time.Now(), fingerprint)
	if err != nil {
		return fmt.Errorf("finalize idempotency record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *idempotencyRepo) Find(ctx context.Context, tx repository.Tx, fingerprint string) (*model.IdempotencyRecord, error) {
	q := `SELECT ` + idemColumns + ` FROM idempotency_records WHERE fingerprint=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, fingerprint)
	if err != nil {
		return nil, err
	}
	return scanIdempotency(row)
}

func (r *idempotencyRepo) FindByOrder(ctx context.Context, tx repository.Tx, orderID string) ([]*model.IdempotencyRecord, error) {
	q := `SELECT ` + idemColumns + ` FROM idempotency_records WHERE order_id=$1 ORDER BY epoch ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.IdempotencyRecord
	for rows.Next() {
		rec, err := scanIdempotency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanIdempotency(row pgx.Row) (*model.IdempotencyRecord, error) {
	rec := &model.IdempotencyRecord{}
	var state string
	err := row.Scan(&rec.Fingerprint, &rec.OrderID, &rec.Provider, &rec.Epoch, &state,
		&rec.ProviderRef, &rec.Reason, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rec.State = model.IdempotencyState(state)
	return rec, nil
}
