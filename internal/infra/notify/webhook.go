package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier posts terminal order outcomes to a configured endpoint.
// Delivery is best effort; the dispatcher logs and moves on when it fails.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *zerolog.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, log *zerolog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

type terminalEvent struct {
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

func (n *WebhookNotifier) NotifyOrderTerminal(ctx context.Context, order *model.Order) error {
	ev := terminalEvent{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Provider: order.Provider,
		Status:   string(order.Status),
		Reason:   order.TerminalReason(),
	}
	b, _ := json.Marshal(ev)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook http %d", resp.StatusCode)
	}
	return nil
}

// NoopNotifier drops notifications; used when no webhook is configured and
// in tests.
type NoopNotifier struct{}

func (NoopNotifier) NotifyOrderTerminal(context.Context, *model.Order) error { return nil }
