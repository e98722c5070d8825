package providers

import (
	"context"
	"net/http"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
)

// restaurantProvider speaks the kitchen-style API shared by the grocery and
// fast-food services: POST /api/orders to submit, GET /api/orders/{id} to
// poll, POST /api/orders/{id}/cancel to cancel.
type restaurantProvider struct {
	httpClient
	nativeIdempotency bool
}

type restaurantOrderItem struct {
	Dish     string `json:"dish"`
	Quantity int    `json:"quantity"`
}

type restaurantOrderRequest struct {
	Order []restaurantOrderItem `json:"order"`
}

type restaurantOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (p *restaurantProvider) Name() string { return p.name }

func (p *restaurantProvider) Submit(ctx context.Context, order *model.Order, fingerprint string) (adapter.SubmitResult, error) {
	body := restaurantOrderRequest{Order: make([]restaurantOrderItem, 0, len(order.Items))}
	for _, item := range order.Items {
		body.Order = append(body.Order, restaurantOrderItem{Dish: item.DishID, Quantity: item.Quantity})
	}

	hdr := http.Header{}
	if p.nativeIdempotency {
		hdr.Set("Idempotency-Key", fingerprint)
	}

	var resp restaurantOrderResponse
	code, err := p.doJSON(ctx, "submit", http.MethodPost, "/api/orders", hdr, body, &resp)
	if err == errTransient {
		return adapter.SubmitResult{Outcome: adapter.SubmitUnavailable}, nil
	}
	if err != nil {
		return adapter.SubmitResult{}, err
	}
	if code >= 300 {
		return adapter.SubmitResult{Outcome: adapter.SubmitRejected, Reason: resp.Error}, nil
	}
	return adapter.SubmitResult{Outcome: adapter.SubmitAccepted, ProviderRef: resp.ID}, nil
}

func (p *restaurantProvider) PollStatus(ctx context.Context, providerRef string) (adapter.ProviderOrderStatus, error) {
	var resp restaurantOrderResponse
	code, err := p.doJSON(ctx, "poll", http.MethodGet, "/api/orders/"+providerRef, nil, nil, &resp)
	if err == errTransient || err != nil || code >= 300 {
		return adapter.ProviderUnknown, nil
	}
	return mapOrderStatus(resp.Status), nil
}

func (p *restaurantProvider) Cancel(ctx context.Context, providerRef string) (adapter.CancelOutcome, error) {
	var resp restaurantOrderResponse
	code, err := p.doJSON(ctx, "cancel", http.MethodPost, "/api/orders/"+providerRef+"/cancel", nil, nil, &resp)
	if err == errTransient || err != nil {
		return adapter.CancelUnknown, nil
	}
	switch {
	case code < 300:
		return adapter.CancelDone, nil
	case code == http.StatusConflict:
		return adapter.CancelTooLate, nil
	default:
		return adapter.CancelUnknown, nil
	}
}
