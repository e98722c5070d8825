package adapter

import (
	"context"

	"catering-platform/internal/domain/model"
)

// Notifier delivers terminal-state notifications to the messaging
// collaborator. Failures are logged, never allowed to fail dispatch.
type Notifier interface {
	NotifyOrderTerminal(ctx context.Context, order *model.Order) error
}
