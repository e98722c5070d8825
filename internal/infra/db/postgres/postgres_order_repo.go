package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, user_id, items, provider, provider_ref, status, priority, attempts, transient, fail_reason, eta, created_at, transition_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	const q = `
INSERT INTO orders (id, user_id, items, provider, provider_ref, status, priority, attempts, transient, fail_reason, eta, created_at, transition_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,COALESCE($12,NOW()),COALESCE($13,NOW()))
ON CONFLICT (id) DO UPDATE SET
  provider = EXCLUDED.provider,
  provider_ref = EXCLUDED.provider_ref,
  status = EXCLUDED.status,
  priority = EXCLUDED.priority,
  attempts = EXCLUDED.attempts,
  transient = EXCLUDED.transient,
  fail_reason = EXCLUDED.fail_reason,
  transition_at = EXCLUDED.transition_at;`
	_, err = execSQL(ctx, r.pool, tx, q,
		o.ID, o.UserID, items, o.Provider, o.ProviderRef, string(o.Status), string(o.Priority),
		o.Attempts, o.Transient, o.FailReason, o.ETA, o.CreatedAt, o.TransitionAt)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// Transition is the compare-and-set that backs the state machine. Updating
// only when the stored status still equals `from` makes dispatch_in_flight a
// mutual-exclusion flag: of two workers racing to claim the same order,
// exactly one CAS lands.
func (r *orderRepo) Transition(ctx context.Context, tx repository.Tx, id string, from, to model.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return domain.ErrInvalidTransition
	}
	const q = `UPDATE orders SET status=$1, transition_at=NOW() WHERE id=$2 AND status=$3;`
	tag, err := execSQL(ctx, r.pool, tx, q, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("transition order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order is gone or another writer moved it first.
		const exists = `SELECT 1 FROM orders WHERE id=$1;`
		row, err := pickRow(ctx, r.pool, tx, exists, id)
		if err != nil {
			return err
		}
		var one int
		if scanErr := row.Scan(&one); scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return domain.ErrReadDatabaseRow
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *orderRepo) UpdateDispatch(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
UPDATE orders SET provider_ref=$1, attempts=$2, transient=$3, fail_reason=$4, transition_at=$5
WHERE id=$6;`
	_, err := execSQL(ctx, r.pool, tx, q, o.ProviderRef, o.Attempts, o.Transient, o.FailReason, time.Now(), o.ID)
	if err != nil {
		return fmt.Errorf("update dispatch state: %w", err)
	}
	return nil
}

func (r *orderRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.OrderStatus, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE status=$1 ORDER BY transition_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var items []byte
	var status, priority string
	err := row.Scan(&o.ID, &o.UserID, &items, &o.Provider, &o.ProviderRef, &status, &priority,
		&o.Attempts, &o.Transient, &o.FailReason, &o.ETA, &o.CreatedAt, &o.TransitionAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	o.Status = model.OrderStatus(status)
	o.Priority = model.Priority(priority)
	return o, nil
}

func scanOrders(rows pgx.Rows) ([]*model.Order, error) {
	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
