package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
)

var _ repository.DishRepository = (*dishRepo)(nil)

type dishRepo struct {
	pool *pgxpool.Pool
}

func NewDishRepo(pool *pgxpool.Pool) *dishRepo {
	return &dishRepo{pool: pool}
}

const dishColumns = `id, name, price_cents, provider, available`

func (r *dishRepo) ListAvailable(ctx context.Context, tx repository.Tx) ([]*model.Dish, error) {
	q := `SELECT ` + dishColumns + ` FROM dishes WHERE available ORDER BY name;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Dish
	for rows.Next() {
		d := &model.Dish{}
		if err := rows.Scan(&d.ID, &d.Name, &d.PriceCents, &d.Provider, &d.Available); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *dishRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Dish, error) {
	q := `SELECT ` + dishColumns + ` FROM dishes WHERE id=$1;`
	return r.findOne(ctx, tx, q, id)
}

func (r *dishRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.Dish, error) {
	q := `SELECT ` + dishColumns + ` FROM dishes WHERE LOWER(name)=LOWER($1) LIMIT 1;`
	return r.findOne(ctx, tx, q, name)
}

func (r *dishRepo) findOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.Dish, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	d := &model.Dish{}
	if err := row.Scan(&d.ID, &d.Name, &d.PriceCents, &d.Provider, &d.Available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}
