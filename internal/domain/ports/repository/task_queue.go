package repository

import (
	"context"

	"catering-platform/internal/domain/model"
)

// TaskQueue is the priority dispatch queue. Three lanes: high, default, low.
// Dequeue is strict priority (high before default before low) and FIFO
// within a lane. No fairness guarantee is made for the low lane beyond
// "served when the lanes above are empty"; that starvation risk is the
// accepted cost of strict priority.
type TaskQueue interface {
	// Enqueue places the task on the lane matching its priority.
	Enqueue(ctx context.Context, task *model.DispatchTask) error

	// Dequeue blocks until a task is available or the context is cancelled.
	Dequeue(ctx context.Context) (*model.DispatchTask, error)

	// Depth reports the number of waiting tasks per lane, for metrics.
	Depth(ctx context.Context) (map[model.Priority]int, error)

	Close() error
}
