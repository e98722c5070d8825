// File: internal/infra/worker/mocks_test.go
package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/domain/ports/repository"
)

// memOrderRepo mirrors the Postgres repo for unit tests. The Transition CAS
// runs under the mutex, matching the atomicity of UPDATE ... WHERE status.
type memOrderRepo struct {
	mu    sync.Mutex
	store map[string]*model.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{store: make(map[string]*model.Order)}
}

func (m *memOrderRepo) Save(_ context.Context, _ repository.Tx, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.store[order.ID] = &cp
	return nil
}

func (m *memOrderRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) FindByUser(_ context.Context, _ repository.Tx, userID string) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) Transition(_ context.Context, _ repository.Tx, id string, from, to model.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from || !from.CanTransitionTo(to) {
		return domain.ErrInvalidTransition
	}
	o.Status = to
	o.TransitionAt = time.Now()
	return nil
}

func (m *memOrderRepo) UpdateDispatch(_ context.Context, _ repository.Tx, order *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[order.ID]
	if !ok {
		return domain.ErrNotFound
	}
	o.ProviderRef = order.ProviderRef
	o.Attempts = order.Attempts
	o.Transient = order.Transient
	o.FailReason = order.FailReason
	o.TransitionAt = order.TransitionAt
	return nil
}

func (m *memOrderRepo) ListByStatus(_ context.Context, _ repository.Tx, status model.OrderStatus, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.Status == status {
			cp := *o
			out = append(out, &cp)
		}
	}
	// Oldest transition first, like the SQL ORDER BY.
	sort.Slice(out, func(i, j int) bool { return out[i].TransitionAt.Before(out[j].TransitionAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memOrderRepo) get(id string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

// memLedger is an in-memory idempotency ledger with the same
// duplicate-detection contract as the Postgres one.
type memLedger struct {
	mu      sync.Mutex
	records map[string]*model.IdempotencyRecord
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]*model.IdempotencyRecord)}
}

func (m *memLedger) Begin(_ context.Context, _ repository.Tx, rec *model.IdempotencyRecord) (*model.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.records[rec.Fingerprint]; ok {
		cp := *prev
		return &cp, domain.ErrDuplicateSubmission
	}
	cp := *rec
	m.records[rec.Fingerprint] = &cp
	return nil, nil
}

func (m *memLedger) MarkSucceeded(_ context.Context, _ repository.Tx, fingerprint, providerRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[fingerprint]
	if !ok {
		return domain.ErrNotFound
	}
	rec.State = model.IdempotencySucceeded
	rec.ProviderRef = providerRef
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *memLedger) MarkFailed(_ context.Context, _ repository.Tx, fingerprint, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[fingerprint]
	if !ok {
		return domain.ErrNotFound
	}
	rec.State = model.IdempotencyFailed
	rec.Reason = reason
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *memLedger) Find(_ context.Context, _ repository.Tx, fingerprint string) (*model.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[fingerprint]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memLedger) FindByOrder(_ context.Context, _ repository.Tx, orderID string) ([]*model.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.IdempotencyRecord
	for _, rec := range m.records {
		if rec.OrderID == orderID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// scriptedProvider returns queued outcomes in order and records every
// Submit call with its fingerprint.
type scriptedProvider struct {
	mu           sync.Mutex
	name         string
	outcomes     []adapter.SubmitResult
	calls        int
	fingerprints []string
	pollStatus   adapter.ProviderOrderStatus
}

func (s *scriptedProvider) Name() string { return s.name }

func (s *scriptedProvider) Submit(_ context.Context, _ *model.Order, fingerprint string) (adapter.SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints = append(s.fingerprints, fingerprint)
	i := s.calls
	s.calls++
	if i < len(s.outcomes) {
		return s.outcomes[i], nil
	}
	return adapter.SubmitResult{Outcome: adapter.SubmitAccepted, ProviderRef: "ref-default"}, nil
}

func (s *scriptedProvider) PollStatus(context.Context, string) (adapter.ProviderOrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollStatus == "" {
		return adapter.ProviderInProgress, nil
	}
	return s.pollStatus, nil
}

func (s *scriptedProvider) Cancel(context.Context, string) (adapter.CancelOutcome, error) {
	return adapter.CancelDone, nil
}

func (s *scriptedProvider) submitCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedProvider) seenFingerprints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fingerprints...)
}

type fakeRegistry struct {
	provs map[string]adapter.OrderProvider
}

func (f *fakeRegistry) Get(name string) (adapter.OrderProvider, bool) {
	p, ok := f.provs[name]
	return p, ok
}

func (f *fakeRegistry) Names() []string {
	var out []string
	for n := range f.provs {
		out = append(out, n)
	}
	return out
}

// recordingNotifier captures terminal notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	orders []*model.Order
}

func (r *recordingNotifier) NotifyOrderTerminal(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *recordingNotifier) notified() []*model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.Order(nil), r.orders...)
}

// memTracker records the status mirror operations the workers issue.
type memTracker struct {
	mu        sync.Mutex
	statuses  map[string]string
	forgotten []string
}

func newMemTracker() *memTracker {
	return &memTracker{statuses: make(map[string]string)}
}

func (m *memTracker) RecordStatus(_ context.Context, orderID, _, _, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[orderID] = status
	return nil
}

func (m *memTracker) Forget(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, orderID)
	m.forgotten = append(m.forgotten, orderID)
	return nil
}
