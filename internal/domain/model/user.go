package model

import (
	"time"

	"catering-platform/internal/domain"

	"github.com/google/uuid"
)

// User is the authenticated identity owning sessions and orders. Account
// storage itself is an external collaborator; we only need what dispatch
// priority and ownership checks read.
type User struct {
	ID           string
	TelegramID   int64 // 0 when the user only talks over HTTP
	Username     string
	VIP          bool
	RegisteredAt time.Time
	LastActiveAt time.Time
}

func NewUser(id, username string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if username == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:           id,
		Username:     username,
		RegisteredAt: time.Now(),
		LastActiveAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
func (u *User) Touch()       { u.LastActiveAt = time.Now() }

// OrderPriority derives the queue lane for this user's orders. VIP users and
// expedited drafts go to the high lane; everything else takes the default.
func (u *User) OrderPriority(expedited bool) Priority {
	if u != nil && (u.VIP || expedited) {
		return PriorityHigh
	}
	return PriorityDefault
}
