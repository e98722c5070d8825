package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catering-platform/internal/domain"

	"github.com/go-redis/redis/v8"
)

// TrackingEntry is the last known provider-side view of an order, kept hot
// in Redis so status reads don't hit the provider on every request.
type TrackingEntry struct {
	OrderID     string    `json:"order_id"`
	Provider    string    `json:"provider"`
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TrackingCache struct {
	cli *redis.Client
	ttl time.Duration
}

func NewTrackingCache(c *Client, ttl time.Duration) *TrackingCache {
	return &TrackingCache{cli: c.cli, ttl: ttl}
}

func trackingKey(orderID string) string {
	return fmt.Sprintf("orders:tracking:%s", orderID)
}

func (t *TrackingCache) Store(ctx context.Context, entry *TrackingEntry) error {
	entry.UpdatedAt = time.Now()
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return t.cli.Set(ctx, trackingKey(entry.OrderID), b, t.ttl).Err()
}

// RecordStatus is the flat form of Store used by the dispatch workers.
func (t *TrackingCache) RecordStatus(ctx context.Context, orderID, provider, providerRef, status string) error {
	return t.Store(ctx, &TrackingEntry{
		OrderID:     orderID,
		Provider:    provider,
		ProviderRef: providerRef,
		Status:      status,
	})
}

func (t *TrackingCache) Get(ctx context.Context, orderID string) (*TrackingEntry, error) {
	raw, err := t.cli.Get(ctx, trackingKey(orderID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var entry TrackingEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (t *TrackingCache) Delete(ctx context.Context, orderID string) error {
	return t.cli.Del(ctx, trackingKey(orderID)).Err()
}

// Forget is Delete under the name the dispatch workers use.
func (t *TrackingCache) Forget(ctx context.Context, orderID string) error {
	return t.Delete(ctx, orderID)
}
