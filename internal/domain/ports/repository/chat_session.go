package repository

import (
	"context"

	"catering-platform/internal/domain/model"
)

type ChatSessionRepository interface {
	Save(ctx context.Context, tx Tx, session *model.ChatSession) error
	SaveTurn(ctx context.Context, tx Tx, turn *model.ChatTurn) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ChatSession, error)
	FindOpenByUser(ctx context.Context, tx Tx, userID string) (*model.ChatSession, error)
	UpdateStatus(ctx context.Context, tx Tx, sessionID string, status model.ChatSessionStatus) error
}
