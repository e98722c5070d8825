package providers

import (
	"time"

	"catering-platform/internal/domain/ports/adapter"
)

// NewKFC builds the adapter for the KFC fast-food service. KFC has no native
// idempotency key; duplicate protection rests entirely on the ledger check
// the dispatcher performs before calling Submit.
func NewKFC(baseURL string, timeout time.Duration) adapter.OrderProvider {
	return &restaurantProvider{
		httpClient: newHTTPClient("kfc", baseURL, timeout),
	}
}
