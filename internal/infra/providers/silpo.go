package providers

import (
	"time"

	"catering-platform/internal/domain/ports/adapter"
)

// NewSilpo builds the adapter for the Silpo grocery service. Silpo honours
// an Idempotency-Key header, so a resubmitted fingerprint is deduplicated on
// their side as well as in our ledger.
func NewSilpo(baseURL string, timeout time.Duration) adapter.OrderProvider {
	return &restaurantProvider{
		httpClient:        newHTTPClient("silpo", baseURL, timeout),
		nativeIdempotency: true,
	}
}
