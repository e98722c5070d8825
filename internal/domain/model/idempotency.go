package model

import "time"

type IdempotencyState string

const (
	IdempotencyPending   IdempotencyState = "pending"
	IdempotencySucceeded IdempotencyState = "succeeded"
	IdempotencyFailed    IdempotencyState = "failed"
)

// IdempotencyRecord tracks the outcome of one submission attempt, keyed by
// the attempt fingerprint. The record is written as pending before the
// provider call and finalized after, so a crash between "submitted" and
// "recorded" is detectable on retry.
type IdempotencyRecord struct {
	Fingerprint string
	OrderID     string
	Provider    string
	Epoch       int
	State       IdempotencyState
	ProviderRef string // set when succeeded
	Reason      string // set when failed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewIdempotencyRecord(task *DispatchTask) *IdempotencyRecord {
	now := time.Now()
	return &IdempotencyRecord{
		Fingerprint: task.Fingerprint(),
		OrderID:     task.OrderID,
		Provider:    task.Provider,
		Epoch:       task.AttemptEpoch,
		State:       IdempotencyPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
