// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/domain/ports/repository"
)

// memOrderRepo is a small in-memory implementation used by unit tests. The
// Transition CAS runs under the mutex, matching the atomicity of the real
// UPDATE ... WHERE status = $from.
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
			if limit > 0 && len(out) >= limit {
				break
			}
		}
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

type memSessionRepo struct {
	mu    sync.Mutex
	store map[string]*model.ChatSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: make(map[string]*model.ChatSession)}
}

func (m *memSessionRepo) Save(_ context.Context, _ repository.Tx, s *model.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) SaveTurn(_ context.Context, _ repository.Tx, turn *model.ChatTurn) error {
	return nil // turns live on the session copy in this fake
}

func (m *memSessionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) FindOpenByUser(_ context.Context, _ repository.Tx, userID string) (*model.ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.UserID == userID && (s.Status == model.ChatSessionOpen || s.Status == model.ChatSessionAwaiting) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) UpdateStatus(_ context.Context, _ repository.Tx, sessionID string, status model.ChatSessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	return nil
}

type memDishRepo struct {
	dishes []*model.Dish
}

func (m *memDishRepo) ListAvailable(_ context.Context, _ repository.Tx) ([]*model.Dish, error) {
	var out []*model.Dish
	for _, d := range m.dishes {
		if d.Available {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDishRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Dish, error) {
	for _, d := range m.dishes {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memDishRepo) FindByName(_ context.Context, _ repository.Tx, name string) (*model.Dish, error) {
	for _, d := range m.dishes {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memUserRepo struct {
	mu    sync.Mutex
	store map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: make(map[string]*model.User)}
}

func (m *memUserRepo) Save(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.store[user.ID] = &cp
	return nil
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.store {
		if u.TelegramID == telegramID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// memLocker serializes like the Redis SetNX lock: a held key rejects the
// second writer with ErrSessionConflict.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]string)} }

func (m *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrSessionConflict
	}
	token := key + "-token"
	m.held[key] = token
	return token, nil
}

func (m *memLocker) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] != token {
		return domain.ErrNotFound
	}
	delete(m.held, key)
	return nil
}

// memQueue records enqueued tasks; usecase tests only care what was queued.
type memQueue struct {
	mu    sync.Mutex
	tasks []*model.DispatchTask
}

func (m *memQueue) Enqueue(_ context.Context, task *model.DispatchTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *memQueue) Dequeue(ctx context.Context) (*model.DispatchTask, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *memQueue) Depth(_ context.Context) (map[model.Priority]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[model.Priority]int)
	for _, t := range m.tasks {
		out[t.Priority]++
	}
	return out, nil
}

func (m *memQueue) Close() error { return nil }

func (m *memQueue) queued() []*model.DispatchTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.DispatchTask(nil), m.tasks...)
}

// fakeProvider is scriptable per test.
type fakeProvider struct {
	name          string
	pollStatus    adapter.ProviderOrderStatus
	cancelOutcome adapter.CancelOutcome
	cancelCalls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Submit(context.Context, *model.Order, string) (adapter.SubmitResult, error) {
	return adapter.SubmitResult{Outcome: adapter.SubmitAccepted, ProviderRef: "ref-1"}, nil
}

func (f *fakeProvider) PollStatus(context.Context, string) (adapter.ProviderOrderStatus, error) {
	return f.pollStatus, nil
}

func (f *fakeProvider) Cancel(context.Context, string) (adapter.CancelOutcome, error) {
	f.cancelCalls++
	return f.cancelOutcome, nil
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

// fakeTxm runs the callback without a real transaction.
type fakeTxm struct{}

func (fakeTxm) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// scriptedExtractor returns canned verdicts in order.
type scriptedExtractor struct {
	verdicts []adapter.IntentResult
	i        int
}

func (s *scriptedExtractor) Extract(context.Context, adapter.IntentRequest) (adapter.IntentResult, error) {
	if s.i >= len(s.verdicts) {
		return adapter.IntentResult{Action: adapter.IntentNone}, nil
	}
	v := s.verdicts[s.i]
	s.i++
	return v, nil
}
