package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) Save(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, telegram_id, username, vip, registered_at, last_active_at)
VALUES ($1,$2,$3,$4,COALESCE($5,NOW()),COALESCE($6,NOW()))
ON CONFLICT (id) DO UPDATE SET
  telegram_id = EXCLUDED.telegram_id,
  username = EXCLUDED.username,
  vip = EXCLUDED.vip,
  last_active_at = EXCLUDED.last_active_at;`
	_, err := execSQL(ctx, r.pool, nil, q, u.ID, u.TelegramID, u.Username, u.VIP, u.RegisteredAt, u.LastActiveAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	const q = `SELECT id, telegram_id, username, vip, registered_at, last_active_at FROM users WHERE id=$1;`
	return r.findOne(ctx, q, id)
}

func (r *userRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	const q = `SELECT id, telegram_id, username, vip, registered_at, last_active_at FROM users WHERE telegram_id=$1;`
	return r.findOne(ctx, q, telegramID)
}

func (r *userRepo) findOne(ctx context.Context, q string, arg interface{}) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, nil, q, arg)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.VIP, &u.RegisteredAt, &u.LastActiveAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}
