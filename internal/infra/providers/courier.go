package providers

import (
	"context"
	"fmt"
	"net/http"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
)

// courierProvider speaks the driver-dispatch API shared by the ride/courier
// services: POST /drivers/orders, GET /drivers/orders/{id},
// POST /drivers/orders/{id}/cancel.
type courierProvider struct {
	httpClient
	pickup string
}

type courierOrderRequest struct {
	Addresses []string `json:"addresses"`
	Comments  []string `json:"comments"`
}

type courierOrderResponse struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	Location []float64 `json:"location,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (p *courierProvider) Name() string { return p.name }

func (p *courierProvider) Submit(ctx context.Context, order *model.Order, fingerprint string) (adapter.SubmitResult, error) {
	body := courierOrderRequest{
		Addresses: []string{p.pickup},
		Comments:  make([]string, 0, len(order.Items)+1),
	}
	body.Comments = append(body.Comments, "order "+order.ID)
	for _, item := range order.Items {
		body.Comments = append(body.Comments, fmt.Sprintf("%dx %s", item.Quantity, item.DishID))
	}

	hdr := http.Header{}
	hdr.Set("Idempotency-Key", fingerprint)

	var resp courierOrderResponse
	code, err := p.doJSON(ctx, "submit", http.MethodPost, "/drivers/orders", hdr, body, &resp)
	if err == errTransient {
		return adapter.SubmitResult{Outcome: adapter.SubmitUnavailable}, nil
	}
	if err != nil {
		return adapter.SubmitResult{}, err
	}
	if code >= 300 || resp.Error != "" {
		return adapter.SubmitResult{Outcome: adapter.SubmitRejected, Reason: resp.Error}, nil
	}
	return adapter.SubmitResult{Outcome: adapter.SubmitAccepted, ProviderRef: resp.ID}, nil
}

func (p *courierProvider) PollStatus(ctx context.Context, providerRef string) (adapter.ProviderOrderStatus, error) {
	var resp courierOrderResponse
	code, err := p.doJSON(ctx, "poll", http.MethodGet, "/drivers/orders/"+providerRef, nil, nil, &resp)
	if err == errTransient || err != nil || code >= 300 {
		return adapter.ProviderUnknown, nil
	}
	return mapOrderStatus(resp.Status), nil
}

func (p *courierProvider) Cancel(ctx context.Context, providerRef string) (adapter.CancelOutcome, error) {
	code, err := p.doJSON(ctx, "cancel", http.MethodPost, "/drivers/orders/"+providerRef+"/cancel", nil, nil, nil)
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
