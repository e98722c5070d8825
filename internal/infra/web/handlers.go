package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/infra/redis"
	"catering-platform/internal/usecase"
)

type chatTurnRequest struct {
	Content string `json:"content"`
}

type chatTurnResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Reply     string `json:"reply"`
}

func chatTurnHandler(chatUC usecase.ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req chatTurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		session, reply, err := chatUC.ProcessTurn(ctx, UserID(ctx), req.Content)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidArgument):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrSessionConflict):
				http.Error(w, "Another turn is in progress", http.StatusConflict)
			default:
				http.Error(w, "Failed to process turn", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, chatTurnResponse{
			SessionID: session.ID,
			Status:    string(session.Status),
			Reply:     reply,
		})
	}
}

type turnView struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func chatTurnsListHandler(chatUC usecase.ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		session, err := chatUC.FindSession(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to load session", http.StatusInternalServerError)
			return
		}
		turns := make([]turnView, 0, len(session.Turns))
		for _, t := range session.Turns {
			turns = append(turns, turnView{Role: t.Role, Content: t.Content, Timestamp: t.Timestamp})
		}
		writeJSON(w, http.StatusOK, turns)
	}
}

func chatConfirmHandler(chatUC usecase.ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		order, err := chatUC.Confirm(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "Session not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrNotAwaiting), errors.Is(err, domain.ErrEmptyDraft):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, domain.ErrSessionConflict):
				http.Error(w, "Another turn is in progress", http.StatusConflict)
			default:
				http.Error(w, "Failed to confirm order", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"order_id": order.ID})
	}
}

func chatCloseHandler(chatUC usecase.ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := chatUC.CloseSession(ctx, UserID(ctx), chi.URLParam(r, "id")); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Session not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to close session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
	}
}

type orderView struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	Provider       string    `json:"provider"`
	ProviderRef    string    `json:"provider_ref,omitempty"`
	ProviderStatus string    `json:"provider_status,omitempty"`
	Priority       string    `json:"priority"`
	Attempts       int       `json:"attempts"`
	FailReason     string    `json:"fail_reason,omitempty"`
	ETA            time.Time `json:"eta,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toOrderView(order *model.Order) orderView {
	return orderView{
		ID:          order.ID,
		Status:      string(order.Status),
		Provider:    order.Provider,
		ProviderRef: order.ProviderRef,
		Priority:    string(order.Priority),
		Attempts:    order.Attempts,
		FailReason:  order.FailReason,
		ETA:         order.ETA,
		CreatedAt:   order.CreatedAt,
	}
}

func orderGetHandler(orderUC usecase.OrderUseCase, tracking *redis.TrackingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		order, err := orderUC.Get(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to load order", http.StatusInternalServerError)
			return
		}
		view := toOrderView(order)
		if tracking != nil {
			if entry, err := tracking.Get(ctx, order.ID); err == nil {
				view.ProviderStatus = entry.Status
			}
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func ordersListHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orders, err := orderUC.ListForUser(ctx, UserID(ctx))
		if err != nil {
			http.Error(w, "Failed to load orders", http.StatusInternalServerError)
			return
		}
		views := make([]orderView, 0, len(orders))
		for _, o := range orders {
			views = append(views, toOrderView(o))
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func orderCancelHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		err := orderUC.Cancel(ctx, UserID(ctx), chi.URLParam(r, "id"))
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				http.Error(w, "Order not found", http.StatusNotFound)
			case errors.Is(err, domain.ErrTooLate):
				writeJSON(w, http.StatusConflict, map[string]string{"status": "too_late"})
			case errors.Is(err, domain.ErrOrderQuarantined):
				writeJSON(w, http.StatusConflict, map[string]string{"status": "quarantined"})
			case errors.Is(err, domain.ErrProviderUnavailable):
				http.Error(w, "Provider unavailable, try again", http.StatusBadGateway)
			default:
				http.Error(w, "Failed to cancel order", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	}
}

type dishView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Provider   string `json:"provider"`
}

func dishesHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dishes, err := orderUC.Menu(r.Context())
		if err != nil {
			http.Error(w, "Failed to load menu", http.StatusInternalServerError)
			return
		}
		views := make([]dishView, 0, len(dishes))
		for _, d := range dishes {
			views = append(views, dishView{ID: d.ID, Name: d.Name, PriceCents: d.PriceCents, Provider: d.Provider})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
