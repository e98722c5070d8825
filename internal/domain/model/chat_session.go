package model

import (
	"time"

	"catering-platform/internal/domain"
)

type ChatSessionStatus string

const (
	ChatSessionOpen      ChatSessionStatus = "open"
	ChatSessionAwaiting  ChatSessionStatus = "awaiting_confirmation"
	ChatSessionConfirmed ChatSessionStatus = "confirmed"
	ChatSessionClosed    ChatSessionStatus = "closed"
)

// ChatTurn represents one message within a chat session.
type ChatTurn struct {
	SessionID string
	Role      string // "user" | "system"
	Content   string
	Timestamp time.Time
}

// DraftOrder is the order being built up during a conversation. It lives
// inside the session until confirmation detaches it into an Order.
type DraftOrder struct {
	Items     []LineItem `json:"items"`
	Provider  string     `json:"delivery_provider,omitempty"`
	ETA       time.Time  `json:"eta,omitempty"`
	Expedited bool       `json:"expedited,omitempty"`
}

func (d *DraftOrder) SetItem(dishID string, quantity int) {
	for i := range d.Items {
		if d.Items[i].DishID == dishID {
			if quantity <= 0 {
				d.Items = append(d.Items[:i], d.Items[i+1:]...)
				return
			}
			d.Items[i].Quantity = quantity
			return
		}
	}
	if quantity > 0 {
		d.Items = append(d.Items, LineItem{DishID: dishID, Quantity: quantity})
	}
}

// ChatSession is the aggregate root for a running conversation. A session
// owns at most one draft order at a time.
type ChatSession struct {
	ID        string
	UserID    string
	Status    ChatSessionStatus
	Turns     []ChatTurn
	Draft     *DraftOrder
	OrderID   string // set once the draft was detached into an order
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewChatSession(id, userID string) *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:        id,
		UserID:    userID,
		Status:    ChatSessionOpen,
		Turns:     make([]ChatTurn, 0, 8),
		Draft:     &DraftOrder{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ChatSession) AddTurn(role, content string) *ChatTurn {
	s.Turns = append(s.Turns, ChatTurn{
		SessionID: s.ID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
	return &s.Turns[len(s.Turns)-1]
}

func (s *ChatSession) RecentTurns(n int) []ChatTurn {
	if n <= 0 || len(s.Turns) <= n {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// MarkAwaiting flags the draft as complete and waiting for an explicit user
// confirmation turn.
func (s *ChatSession) MarkAwaiting() error {
	if s.Status != ChatSessionOpen {
		return domain.ErrNotAwaiting
	}
	if s.Draft == nil || len(s.Draft.Items) == 0 {
		return domain.ErrEmptyDraft
	}
	s.Status = ChatSessionAwaiting
	s.UpdatedAt = time.Now()
	return nil
}

// ConfirmDraft detaches the draft; the caller turns it into an Order. The
// session keeps a reference to the created order and no longer owns a draft.
func (s *ChatSession) ConfirmDraft(orderID string) (*DraftOrder, error) {
	if s.Status == ChatSessionClosed || s.Status == ChatSessionConfirmed {
		return nil, domain.ErrSessionClosed
	}
	if s.Draft == nil || len(s.Draft.Items) == 0 {
		return nil, domain.ErrEmptyDraft
	}
	draft := s.Draft
	s.Draft = nil
	s.OrderID = orderID
	s.Status = ChatSessionConfirmed
	s.UpdatedAt = time.Now()
	return draft, nil
}
