// File: internal/infra/db/postgres/postgres_chat_session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
)

var _ repository.ChatSessionRepository = (*chatSessionRepo)(nil)

// chatSessionRepo persists sessions with the draft order inlined as JSON and
// turns appended to a separate table ordered by arrival time.
type chatSessionRepo struct {
	pool *pgxpool.Pool
}

func NewChatSessionRepo(pool *pgxpool.Pool) *chatSessionRepo {
	return &chatSessionRepo{pool: pool}
}

func (r *chatSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.ChatSession) error {
	var draft []byte
	if s.Draft != nil {
		b, err := json.Marshal(s.Draft)
		if err != nil {
			return fmt.Errorf("marshal draft: %w", err)
		}
		draft = b
	}
	const q = `
INSERT INTO chat_sessions (id, user_id, status, draft, order_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,COALESCE($6,NOW()),COALESCE($7,NOW()))
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  draft = EXCLUDED.draft,
  order_id = EXCLUDED.order_id,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, string(s.Status), draft, s.OrderID, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *chatSessionRepo) SaveTurn(ctx context.Context, tx repository.Tx, t *model.ChatTurn) error {
	const q = `
INSERT INTO chat_turns (session_id, role, content, created_at)
VALUES ($1,$2,$3,COALESCE($4,NOW()));`
	_, err := execSQL(ctx, r.pool, tx, q, t.SessionID, t.Role, t.Content, t.Timestamp)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (r *chatSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ChatSession, error) {
	const q = `SELECT id, user_id, status, draft, order_id, created_at, updated_at FROM chat_sessions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	s := &model.ChatSession{}
	var status string
	var draft []byte
	if err := row.Scan(&s.ID, &s.UserID, &status, &draft, &s.OrderID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.ChatSessionStatus(status)
	if len(draft) > 0 {
		s.Draft = &model.DraftOrder{}
		if err := json.Unmarshal(draft, s.Draft); err != nil {
			return nil, fmt.Errorf("unmarshal draft: %w", err)
		}
	}
	if err := r.loadTurns(ctx, tx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *chatSessionRepo) loadTurns(ctx context.Context, tx repository.Tx, s *model.ChatSession) error {
	const q = `SELECT session_id, role, content, created_at FROM chat_turns WHERE session_id=$1 ORDER BY created_at ASC, id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.ChatTurn
		if err := rows.Scan(&t.SessionID, &t.Role, &t.Content, &t.Timestamp); err != nil {
			return domain.ErrReadDatabaseRow
		}
		s.Turns = append(s.Turns, t)
	}
	return rows.Err()
}

func (r *chatSessionRepo) FindOpenByUser(ctx context.Context, tx repository.Tx, userID string) (*model.ChatSession, error) {
	const q = `
SELECT id FROM chat_sessions
WHERE user_id=$1 AND status IN ('open','awaiting_confirmation')
ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return r.FindByID(ctx, tx, id)
}

func (r *chatSessionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, sessionID string, status model.ChatSessionStatus) error {
	const q = `UPDATE chat_sessions SET status=$1, updated_at=NOW() WHERE id=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, string(status), sessionID)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
