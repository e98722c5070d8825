package model

import (
	"time"

	"catering-platform/internal/domain"
)

type OrderStatus string

const (
	OrderCreated          OrderStatus = "created"
	OrderDispatchPending  OrderStatus = "dispatch_pending"
	OrderDispatchInFlight OrderStatus = "dispatch_in_flight"
	OrderConfirmed        OrderStatus = "confirmed"
	OrderDispatchFailed   OrderStatus = "dispatch_failed"
	OrderFulfilled        OrderStatus = "fulfilled"
	OrderCancelled        OrderStatus = "cancelled"
	OrderAbandoned        OrderStatus = "abandoned"
	OrderQuarantined      OrderStatus = "quarantined"
)

type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityDefault Priority = "default"
	PriorityLow     Priority = "low"
)

// transitions is the full set of legal state changes. Terminal states
// (fulfilled, cancelled, abandoned, quarantined) have no outgoing edges.
var transitions = map[OrderStatus][]OrderStatus{
	OrderCreated:          {OrderDispatchPending},
	OrderDispatchPending:  {OrderDispatchInFlight, OrderCancelled},
	OrderDispatchInFlight: {OrderConfirmed, OrderDispatchFailed},
	OrderDispatchFailed:   {OrderDispatchPending, OrderAbandoned, OrderQuarantined},
	OrderConfirmed:        {OrderFulfilled, OrderCancelled},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFulfilled, OrderCancelled, OrderAbandoned, OrderQuarantined:
		return true
	}
	return false
}

// LineItem is one dish position on an order.
type LineItem struct {
	DishID   string
	Quantity int
}

// Order is the aggregate root for a confirmed customer order.
type Order struct {
	ID           string
	UserID       string
	Items        []LineItem
	Provider     string
	ProviderRef  string // external id once the provider accepted
	Status       OrderStatus
	Priority     Priority
	Attempts     int // provider rejections so far
	Transient    int // transient (unavailable) failures so far
	FailReason   string
	ETA          time.Time
	CreatedAt    time.Time
	TransitionAt time.Time
}

func NewOrder(id, userID, provider string, items []LineItem, priority Priority) *Order {
	now := time.Now()
	if priority == "" {
		priority = PriorityDefault
	}
	return &Order{
		ID:           id,
		UserID:       userID,
		Items:        items,
		Provider:     provider,
		Status:       OrderCreated,
		Priority:     priority,
		CreatedAt:    now,
		TransitionAt: now,
	}
}

// TransitionTo validates and applies a state change in memory. Persistence
// enforces the same rule with a compare-and-set on the current status.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return domain.ErrInvalidTransition
	}
	o.Status = next
	o.TransitionAt = time.Now()
	return nil
}

// TerminalReason distinguishes abandoned / cancelled / rejected outcomes for
// user-facing failure messages.
func (o *Order) TerminalReason() string {
	switch o.Status {
	case OrderAbandoned:
		return "abandoned: retry budget exhausted"
	case OrderCancelled:
		return "cancelled: user action"
	case OrderQuarantined:
		return "quarantined: " + o.FailReason
	default:
		return o.FailReason
	}
}
