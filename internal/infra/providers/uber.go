package providers

import (
	"time"

	"catering-platform/internal/domain/ports/adapter"
)

// NewUber builds the adapter for the Uber courier service. Same wire shape
// as Uklon; kept separate in case the surfaces diverge.
func NewUber(baseURL, pickup string, timeout time.Duration) adapter.OrderProvider {
	if pickup == "" {
		pickup = "central kitchen"
	}
	return &courierProvider{
		httpClient: newHTTPClient("uber", baseURL, timeout),
		pickup:     pickup,
	}
}
