package repository

import (
	"context"
	"time"
)

// SessionLocker serializes turns within one chat session. A session is a
// single-writer resource: a second writer gets domain.ErrSessionConflict
// instead of interleaving.
type SessionLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
