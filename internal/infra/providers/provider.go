// Package providers contains the HTTP adapters for the external fulfillment
// services. Each adapter maps its provider's wire format onto the uniform
// OrderProvider capability; nothing outside this package knows a provider's
// request or response shape.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"catering-platform/internal/domain/ports/adapter"
	"catering-platform/internal/infra/metrics"
)

// httpClient is the shared transport base. Connection errors and timeouts
// are reported as transient so the caller never confuses "no answer" with a
// provider verdict.
type httpClient struct {
	name    string
	baseURL string
	client  *http.Client
}

func newHTTPClient(name, baseURL string, timeout time.Duration) httpClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return httpClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

var errTransient = errors.New("transient provider error")

// doJSON performs one call and decodes the response into out. A timeout or
// connection failure returns errTransient; a non-2xx status returns the code
// for the caller to interpret.
func (c *httpClient) doJSON(ctx context.Context, call, method, path string, hdr http.Header, body, out interface{}) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vals := range hdr {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	ms := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveProviderCall(c.name, call, ms, false)
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return 0, errTransient
		}
		// Connection refused / DNS failures are transient too.
		return 0, errTransient
	}
	defer resp.Body.Close()
	metrics.ObserveProviderCall(c.name, call, ms, resp.StatusCode < 300)

	if resp.StatusCode >= 500 {
		return resp.StatusCode, errTransient
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, nil
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s: decode response: %w", c.name, err)
		}
	}
	return resp.StatusCode, nil
}

// normalizeStatus maps the external status vocabulary onto ours. Providers
// spell the same state several ways ("not started", "not_started",
// "Not-Started"), so normalize before matching.
func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

func mapOrderStatus(external string) adapter.ProviderOrderStatus {
	switch normalizeStatus(external) {
	case "not_started", "cooking", "cooked", "delivery", "in_progress":
		return adapter.ProviderInProgress
	case "finished", "delivered":
		return adapter.ProviderDelivered
	case "cancelled", "canceled":
		return adapter.ProviderCancelled
	default:
		return adapter.ProviderUnknown
	}
}

var _ adapter.ProviderRegistry = (*Registry)(nil)

// Registry holds the configured adapters keyed by provider name.
type Registry struct {
	byName map[string]adapter.OrderProvider
}

func NewRegistry(provs ...adapter.OrderProvider) *Registry {
	r := &Registry{byName: make(map[string]adapter.OrderProvider, len(provs))}
	for _, p := range provs {
		r.byName[strings.ToLower(p.Name())] = p
	}
	return r
}

func (r *Registry) Get(name string) (adapter.OrderProvider, bool) {
	p, ok := r.byName[strings.ToLower(name)]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}
