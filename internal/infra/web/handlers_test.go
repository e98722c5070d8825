package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
)

// ---- Fakes ----

type fakeChatUC struct {
	session    *model.ChatSession
	reply      string
	confirmErr error
	turnErr    error
	closed     []string
}

func (f *fakeChatUC) ProcessTurn(_ context.Context, userID, message string) (*model.ChatSession, string, error) {
	if f.turnErr != nil {
		return nil, "", f.turnErr
	}
	return f.session, f.reply, nil
}

func (f *fakeChatUC) Confirm(_ context.Context, userID, sessionID string) (*model.Order, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &model.Order{ID: "o1", UserID: userID}, nil
}

func (f *fakeChatUC) FindSession(_ context.Context, userID, sessionID string) (*model.ChatSession, error) {
	if f.session == nil || f.session.ID != sessionID {
		return nil, domain.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeChatUC) CloseSession(_ context.Context, _, sessionID string) error {
	if f.session == nil || f.session.ID != sessionID {
		return domain.ErrNotFound
	}
	f.closed = append(f.closed, sessionID)
	return nil
}

type fakeOrderUC struct {
	order     *model.Order
	cancelErr error
	dishes    []*model.Dish
}

func (f *fakeOrderUC) Place(_ context.Context, orderID string, user *model.User, _ *model.DraftOrder) (*model.Order, error) {
	return &model.Order{ID: orderID, UserID: user.ID}, nil
}

func (f *fakeOrderUC) Get(_ context.Context, userID, orderID string) (*model.Order, error) {
	if f.order == nil || f.order.ID != orderID || f.order.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeOrderUC) ListForUser(_ context.Context, userID string) ([]*model.Order, error) {
	if f.order != nil && f.order.UserID == userID {
		return []*model.Order{f.order}, nil
	}
	return nil, nil
}

func (f *fakeOrderUC) Menu(context.Context) ([]*model.Dish, error) { return f.dishes, nil }

func (f *fakeOrderUC) Cancel(_ context.Context, userID, orderID string) error {
	return f.cancelErr
}

// ---- Helpers ----

func newTestServer(t *testing.T, chatUC *fakeChatUC, orderUC *fakeOrderUC) (*httptest.Server, string) {
	t.Helper()
	log := zerolog.Nop()
	auth := NewAuthManager("test-secret", time.Hour)
	srv := NewServer(chatUC, orderUC, nil, auth, &log)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	token, err := auth.Mint("u1")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return ts, token
}

func doRequest(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- Tests ----

func TestAPI_RequiresAuth(t *testing.T) {
	ts, _ := newTestServer(t, &fakeChatUC{}, &fakeOrderUC{})

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/dishes", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/dishes", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for a bad token", resp.StatusCode)
	}
}

func TestAPI_HealthzIsPublic(t *testing.T) {
	ts, _ := newTestServer(t, &fakeChatUC{}, &fakeOrderUC{})
	resp := doRequest(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestChatTurn(t *testing.T) {
	session := model.NewChatSession("s1", "u1")
	ts, token := newTestServer(t, &fakeChatUC{session: session, reply: "added 2 burgers"}, &fakeOrderUC{})

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/chat/turns", token, chatTurnRequest{Content: "2 burgers"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body chatTurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SessionID != "s1" || body.Reply != "added 2 burgers" {
		t.Fatalf("body = %+v", body)
	}
}

func TestChatTurn_Conflict(t *testing.T) {
	ts, token := newTestServer(t, &fakeChatUC{turnErr: domain.ErrSessionConflict}, &fakeOrderUC{})

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/chat/turns", token, chatTurnRequest{Content: "hello"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestChatConfirm(t *testing.T) {
	ts, token := newTestServer(t, &fakeChatUC{}, &fakeOrderUC{})

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/chat/sessions/s1/confirm", token, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["order_id"] != "o1" {
		t.Fatalf("body = %v", body)
	}
}

func TestOrderGet(t *testing.T) {
	order := &model.Order{ID: "o1", UserID: "u1", Status: model.OrderConfirmed, Provider: "kfc", Priority: model.PriorityDefault}
	ts, token := newTestServer(t, &fakeChatUC{}, &fakeOrderUC{order: order})

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/orders/o1", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var view orderView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != "o1" || view.Status != "confirmed" {
		t.Fatalf("view = %+v", view)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/orders/ghost", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestOrderCancel_TooLate(t *testing.T) {
	ts, token := newTestServer(t, &fakeChatUC{}, &fakeOrderUC{cancelErr: domain.ErrTooLate})

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/orders/o1/cancel", token, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "too_late" {
		t.Fatalf("body = %v", body)
	}
}

func TestOrderCancel_OK(t *testing.T) {
	ts, token := newTestServer(t, &fakeChatUC{}, &fakeOrderUC{})

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/orders/o1/cancel", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestDishes(t *testing.T) {
	dishes := []*model.Dish{{ID: "d1", Name: "Burger", PriceCents: 550, Provider: "kfc", Available: true}}
	ts, token := newTestServer(t, &fakeChatUC{}, &fakeOrderUC{dishes: dishes})

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/v1/dishes", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var views []dishView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].Name != "Burger" {
		t.Fatalf("views = %+v", views)
	}
}

func TestChatClose(t *testing.T) {
	chat := &fakeChatUC{session: &model.ChatSession{ID: "s1", UserID: "u1"}}
	srv, token := newTestServer(t, chat, &fakeOrderUC{})
	defer srv.Close()

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/chat/sessions/s1/close", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if len(chat.closed) != 1 || chat.closed[0] != "s1" {
		t.Fatalf("closed = %v, want [s1]", chat.closed)
	}

	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/chat/sessions/missing/close", token, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown session", resp.StatusCode)
	}
}
