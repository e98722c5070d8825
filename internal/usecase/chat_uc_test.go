// File: internal/usecase/chat_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/infra/intent"
)

func testMenu() *memDishRepo {
	return &memDishRepo{dishes: []*model.Dish{
		{ID: "d-burger", Name: "Burger", PriceCents: 550, Provider: "kfc", Available: true},
		{ID: "d-fries", Name: "Fries", PriceCents: 250, Provider: "kfc", Available: true},
		{ID: "d-milk", Name: "Milk", PriceCents: 180, Provider: "silpo", Available: true},
	}}
}

type chatFixture struct {
	chatUC   ChatUseCase
	orders   *memOrderRepo
	sessions *memSessionRepo
	users    *memUserRepo
	queue    *memQueue
	locker   *memLocker
}

func newChatFixture(t *testing.T, extractor adapter.IntentExtractor) *chatFixture {
	t.Helper()
	log := zerolog.Nop()
	orders := newMemOrderRepo()
	sessions := newMemSessionRepo()
	users := newMemUserRepo()
	queue := &memQueue{}
	locker := newMemLocker()
	dishes := testMenu()
	registry := &fakeRegistry{provs: map[string]adapter.OrderProvider{
		"kfc":   &fakeProvider{name: "kfc"},
		"silpo": &fakeProvider{name: "silpo"},
		"uklon": &fakeProvider{name: "uklon"},
	}}

	orderUC := NewOrderUseCase(orders, dishes, queue, registry, fakeTxm{}, &log)
	chatUC := NewChatUseCase(sessions, users, dishes, locker, extractor, orderUC, &log)

	_ = users.Save(context.Background(), &model.User{ID: "u1", Username: "alice"})
	return &chatFixture{chatUC: chatUC, orders: orders, sessions: sessions, users: users, queue: queue, locker: locker}
}

func TestProcessTurn_OrderAndConfirm(t *testing.T) {
	fx := newChatFixture(t, intent.NewRuleExtractor())
	ctx := context.Background()

	s, _, err := fx.chatUC.ProcessTurn(ctx, "u1", "2 burgers please")
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if s.Draft == nil || len(s.Draft.Items) != 1 || s.Draft.Items[0].Quantity != 2 {
		t.Fatalf("draft not updated: %+v", s.Draft)
	}

	s, reply, err := fx.chatUC.ProcessTurn(ctx, "u1", "confirm")
	if err != nil {
		t.Fatalf("confirm turn: %v", err)
	}
	if s.Status != model.ChatSessionConfirmed {
		t.Fatalf("session status = %s, want confirmed", s.Status)
	}
	if s.OrderID == "" {
		t.Fatal("session has no order id after confirmation")
	}
	if reply == "" {
		t.Fatal("expected a placement reply")
	}

	// Exactly one order, in dispatch_pending, with its task queued.
	order := fx.orders.get(s.OrderID)
	if order == nil {
		t.Fatal("order not persisted")
	}
	if order.Status != model.OrderDispatchPending {
		t.Fatalf("order status = %s, want dispatch_pending", order.Status)
	}
	if order.Provider != "kfc" {
		t.Fatalf("order provider = %s, want kfc", order.Provider)
	}
	tasks := fx.queue.queued()
	if len(tasks) != 1 {
		t.Fatalf("queued tasks = %d, want 1", len(tasks))
	}
	if tasks[0].OrderID != order.ID {
		t.Fatalf("queued task order = %s, want %s", tasks[0].OrderID, order.ID)
	}
}

func TestProcessTurn_ConfirmEmptyDraft(t *testing.T) {
	fx := newChatFixture(t, intent.NewRuleExtractor())

	s, reply, err := fx.chatUC.ProcessTurn(context.Background(), "u1", "confirm")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if s.Status != model.ChatSessionOpen {
		t.Fatalf("session status = %s, want open", s.Status)
	}
	if reply == "" {
		t.Fatal("expected an empty-draft reply")
	}
	if len(fx.queue.queued()) != 0 {
		t.Fatal("nothing should be queued for an empty draft")
	}
}

func TestProcessTurn_SessionConflict(t *testing.T) {
	fx := newChatFixture(t, intent.NewRuleExtractor())
	ctx := context.Background()

	s, _, err := fx.chatUC.ProcessTurn(ctx, "u1", "1 burger")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	// Simulate a concurrent turn holding the session lock.
	if _, err := fx.locker.TryLock(ctx, "chat:session:"+s.ID, 0); err != nil {
		t.Fatalf("prelock: %v", err)
	}
	_, _, err = fx.chatUC.ProcessTurn(ctx, "u1", "2 fries")
	if !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("err = %v, want ErrSessionConflict", err)
	}
}

func TestProcessTurn_EditReopensAwaiting(t *testing.T) {
	extractor := &scriptedExtractor{verdicts: []adapter.IntentResult{
		{Action: adapter.IntentUpdateDraft, Draft: &model.DraftOrder{Items: []model.LineItem{{DishID: "d-burger", Quantity: 1}}}},
		{Action: adapter.IntentUpdateDraft, Draft: &model.DraftOrder{Items: []model.LineItem{{DishID: "d-burger", Quantity: 3}}}},
	}}
	fx := newChatFixture(t, extractor)
	ctx := context.Background()

	s, _, err := fx.chatUC.ProcessTurn(ctx, "u1", "1 burger")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	// Force awaiting, then edit: the session must fall back to open.
	if err := s.MarkAwaiting(); err != nil {
		t.Fatalf("mark awaiting: %v", err)
	}
	if err := fx.sessions.Save(ctx, nil, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	s, _, err = fx.chatUC.ProcessTurn(ctx, "u1", "make it 3 burgers")
	if err != nil {
		t.Fatalf("edit turn: %v", err)
	}
	if s.Status != model.ChatSessionOpen {
		t.Fatalf("session status = %s, want open after edit", s.Status)
	}
	if s.Draft.Items[0].Quantity != 3 {
		t.Fatalf("draft quantity = %d, want 3", s.Draft.Items[0].Quantity)
	}
}

func TestProcessTurn_VIPGetsHighLane(t *testing.T) {
	fx := newChatFixture(t, intent.NewRuleExtractor())
	ctx := context.Background()
	_ = fx.users.Save(ctx, &model.User{ID: "vip", Username: "bob", VIP: true})

	if _, _, err := fx.chatUC.ProcessTurn(ctx, "vip", "2 burgers"); err != nil {
		t.Fatalf("turn: %v", err)
	}
	if _, _, err := fx.chatUC.ProcessTurn(ctx, "vip", "confirm"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	tasks := fx.queue.queued()
	if len(tasks) != 1 {
		t.Fatalf("queued tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Priority != model.PriorityHigh {
		t.Fatalf("task priority = %s, want high", tasks[0].Priority)
	}
}

func TestProcessTurn_CourierPlacesSecondOrder(t *testing.T) {
	fx := newChatFixture(t, intent.NewRuleExtractor())
	ctx := context.Background()

	if _, _, err := fx.chatUC.ProcessTurn(ctx, "u1", "2 burgers, deliver with uklon"); err != nil {
		t.Fatalf("turn: %v", err)
	}
	s, _, err := fx.chatUC.ProcessTurn(ctx, "u1", "confirm")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	tasks := fx.queue.queued()
	if len(tasks) != 2 {
		t.Fatalf("queued tasks = %d, want food + courier", len(tasks))
	}
	providers := map[string]bool{}
	for _, task := range tasks {
		providers[task.Provider] = true
	}
	if !providers["kfc"] || !providers["uklon"] {
		t.Fatalf("task providers = %v, want kfc and uklon", providers)
	}
	if s.OrderID == "" {
		t.Fatal("session not linked to the food order")
	}
}
