package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrReadDatabaseRow = errors.New("failed to read database row")

	// Dispatch errors
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected order")
	ErrDuplicateSubmission = errors.New("duplicate submission for fingerprint")
	ErrInvalidTransition   = errors.New("invalid order state transition")
	ErrOrderQuarantined    = errors.New("order quarantined after invariant violation")
	ErrQueueClosed         = errors.New("task queue closed")

	// Cancellation
	ErrTooLate = errors.New("too late to cancel order")

	// Chat sessions
	ErrSessionConflict = errors.New("concurrent turn on chat session")
	ErrSessionClosed   = errors.New("chat session is closed")
	ErrEmptyDraft      = errors.New("draft order has no items")
	ErrNotAwaiting     = errors.New("draft order is not awaiting confirmation")
)
