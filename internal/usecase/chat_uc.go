// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/domain/ports/repository"
	"catering-platform/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

const sessionLockTTL = 30 * time.Second

type ChatUseCase interface {
	// ProcessTurn applies one user message to the user's open session,
	// creating the session when none exists. Returns the session and the
	// reply to show the user.
	ProcessTurn(ctx context.Context, userID, message string) (*model.ChatSession, string, error)

	// Confirm places the order for a session awaiting confirmation. The
	// explicit-surface twin of the "confirm" chat turn.
	Confirm(ctx context.Context, userID, sessionID string) (*model.Order, error)

	FindSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error)
	CloseSession(ctx context.Context, userID, sessionID string) error
}

type chatUC struct {
	sessions repository.ChatSessionRepository
	users    repository.UserRepository
	dishes   repository.DishRepository
	locker   repository.SessionLocker
	intent   adapter.IntentExtractor
	orders   OrderUseCase
	log      *zerolog.Logger
}

func NewChatUseCase(
	sessions repository.ChatSessionRepository,
	users repository.UserRepository,
	dishes repository.DishRepository,
	locker repository.SessionLocker,
	intent adapter.IntentExtractor,
	orders OrderUseCase,
	log *zerolog.Logger,
) *chatUC {
	return &chatUC{
		sessions: sessions,
		users:    users,
		dishes:   dishes,
		locker:   locker,
		intent:   intent,
		orders:   orders,
		log:      log,
	}
}

func (c *chatUC) ProcessTurn(ctx context.Context, userID, message string) (*model.ChatSession, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, "", domain.ErrInvalidArgument
	}

	s, err := c.openSession(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	// A session is single-writer: the second concurrent turn loses.
	token, err := c.locker.TryLock(ctx, lockKey(s.ID), sessionLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			metrics.IncSessionConflict()
		}
		return nil, "", err
	}
	defer func() {
		if err := c.locker.Unlock(ctx, lockKey(s.ID), token); err != nil {
			c.log.Warn().Err(err).Str("session_id", s.ID).Msg("session unlock failed")
		}
	}()

	turn := s.AddTurn("user", message)
	if err := c.sessions.SaveTurn(ctx, nil, turn); err != nil {
		return nil, "", err
	}

	menu, err := c.dishes.ListAvailable(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	res, err := c.intent.Extract(ctx, adapter.IntentRequest{
		Message: message,
		Turns:   s.RecentTurns(15),
		Draft:   s.Draft,
		Menu:    menu,
	})
	if err != nil {
		return nil, "", err
	}
	metrics.IncChatTurn(string(res.Action))

	reply, err := c.applyIntent(ctx, s, res)
	if err != nil {
		return nil, "", err
	}

	sysTurn := s.AddTurn("system", reply)
	if err := c.sessions.SaveTurn(ctx, nil, sysTurn); err != nil {
		return nil, "", err
	}
	if err := c.sessions.Save(ctx, nil, s); err != nil {
		return nil, "", err
	}
	return s, reply, nil
}

// applyIntent mutates the session per the extractor's verdict and returns
// the reply text.
func (c *chatUC) applyIntent(ctx context.Context, s *model.ChatSession, res adapter.IntentResult) (string, error) {
	switch res.Action {
	case adapter.IntentUpdateDraft:
		if s.Status == model.ChatSessionAwaiting {
			// Any edit while awaiting confirmation reopens the draft.
			s.Status = model.ChatSessionOpen
		}
		if res.Draft != nil {
			s.Draft = res.Draft
		}
		if res.Reply != "" {
			return res.Reply, nil
		}
		return c.describeDraft(ctx, s.Draft), nil

	case adapter.IntentConfirm:
		// A confirm turn walks open -> awaiting_confirmation -> confirmed in
		// one go; awaiting persists on its own only when placement fails.
		if s.Status == model.ChatSessionOpen {
			if err := s.MarkAwaiting(); err != nil {
				if errors.Is(err, domain.ErrEmptyDraft) {
					return "Your draft is empty. Add some dishes first.", nil
				}
				return "", err
			}
		}
		order, err := c.placeOrder(ctx, s)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyDraft) {
				return "Your draft is empty. Add some dishes first.", nil
			}
			return "", err
		}
		return fmt.Sprintf("Order %s placed. You will be notified when it is confirmed.", order.ID), nil

	case adapter.IntentInfo:
		return res.Reply, nil

	default:
		if res.Reply != "" {
			return res.Reply, nil
		}
		return "I can help you order food. What would you like?", nil
	}
}

func (c *chatUC) Confirm(ctx context.Context, userID, sessionID string) (*model.Order, error) {
	token, err := c.locker.TryLock(ctx, lockKey(sessionID), sessionLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrSessionConflict) {
			metrics.IncSessionConflict()
		}
		return nil, err
	}
	defer func() { _ = c.locker.Unlock(ctx, lockKey(sessionID), token) }()

	s, err := c.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if s.Status != model.ChatSessionAwaiting {
		return nil, domain.ErrNotAwaiting
	}
	order, err := c.placeOrder(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	return order, nil
}

// placeOrder detaches the draft into a real order and hands it to dispatch.
// The session object is mutated but not saved here; callers persist it.
func (c *chatUC) placeOrder(ctx context.Context, s *model.ChatSession) (*model.Order, error) {
	user, err := c.users.FindByID(ctx, s.UserID)
	if err != nil {
		return nil, err
	}

	orderID := ulid.Make().String()
	draft, err := s.ConfirmDraft(orderID)
	if err != nil {
		return nil, err
	}
	order, err := c.orders.Place(ctx, orderID, user, draft)
	if err != nil {
		// Put the draft back so the session is not left half-confirmed.
		s.Draft = draft
		s.OrderID = ""
		s.Status = model.ChatSessionAwaiting
		return nil, err
	}
	return order, nil
}

func (c *chatUC) FindSession(ctx context.Context, userID, sessionID string) (*model.ChatSession, error) {
	s, err := c.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (c *chatUC) CloseSession(ctx context.Context, userID, sessionID string) error {
	s, err := c.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	if s.UserID != userID {
		return domain.ErrNotFound
	}
	return c.sessions.UpdateStatus(ctx, nil, s.ID, model.ChatSessionClosed)
}

func (c *chatUC) openSession(ctx context.Context, userID string) (*model.ChatSession, error) {
	if s, err := c.sessions.FindOpenByUser(ctx, nil, userID); err == nil && s != nil {
		return s, nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	s := model.NewChatSession(ulid.Make().String(), userID)
	if err := c.sessions.Save(ctx, nil, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *chatUC) describeDraft(ctx context.Context, d *model.DraftOrder) string {
	if d == nil || len(d.Items) == 0 {
		return "Your draft is empty."
	}
	parts := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		name := it.DishID
		if dish, err := c.dishes.FindByID(ctx, nil, it.DishID); err == nil {
			name = dish.Name
		}
		parts = append(parts, fmt.Sprintf("%dx %s", it.Quantity, name))
	}
	out := "Current draft: " + strings.Join(parts, ", ") + "."
	if d.Provider != "" {
		out += " Delivery via " + d.Provider + "."
	}
	return out
}

func lockKey(sessionID string) string { return "chat:session:" + sessionID }
