package providers

import (
	"time"

	"catering-platform/internal/domain/ports/adapter"
)

// NewUklon builds the adapter for the Uklon courier service.
func NewUklon(baseURL, pickup string, timeout time.Duration) adapter.OrderProvider {
	if pickup == "" {
		pickup = "central kitchen"
	}
	return &courierProvider{
		httpClient: newHTTPClient("uklon", baseURL, timeout),
		pickup:     pickup,
	}
}
