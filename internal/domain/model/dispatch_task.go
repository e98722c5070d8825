package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DispatchTask is one unit of work on the priority queue: deliver one order
// to its provider. The queue owns the task until a worker claims it.
type DispatchTask struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	Provider     string    `json:"provider"`
	Priority     Priority  `json:"priority"`
	Attempt      int       `json:"attempt"`       // rejection attempts consumed before this one
	AttemptEpoch int       `json:"attempt_epoch"` // strictly increasing across all retries of the order
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

func NewDispatchTask(id string, order *Order) *DispatchTask {
	return &DispatchTask{
		ID:         id,
		OrderID:    order.ID,
		Provider:   order.Provider,
		Priority:   order.Priority,
		EnqueuedAt: time.Now(),
	}
}

// Fingerprint identifies exactly one submission attempt. A retry bumps the
// attempt epoch, so every attempt gets its own fingerprint and its own
// idempotency record; fingerprints are never reused.
func (t *DispatchTask) Fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", t.OrderID, t.Provider, t.AttemptEpoch)))
	return hex.EncodeToString(sum[:])
}

// NextAttempt returns a copy for re-enqueueing after a provider rejection.
func (t *DispatchTask) NextAttempt(id string) *DispatchTask {
	cp := *t
	cp.ID = id
	cp.Attempt++
	cp.AttemptEpoch++
	cp.EnqueuedAt = time.Now()
	return &cp
}

// NextEpoch returns a copy for re-enqueueing after a transient failure. The
// attempt budget is untouched, but the fingerprint still changes.
func (t *DispatchTask) NextEpoch(id string) *DispatchTask {
	cp := *t
	cp.ID = id
	cp.AttemptEpoch++
	cp.EnqueuedAt = time.Now()
	return &cp
}
