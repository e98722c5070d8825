package queue

import (
	"context"
	"sync"
	"time"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
)

var _ repository.TaskQueue = (*MemoryQueue)(nil)

// lanes in strict dequeue order: high first, then default, then low.
var laneOrder = []model.Priority{model.PriorityHigh, model.PriorityDefault, model.PriorityLow}

// MemoryQueue is a process-local three-lane priority queue. Tests and
// single-node deployments use it; the Redis queue provides the same
// semantics across processes. Each instance is fully isolated.
type MemoryQueue struct {
	mu     sync.Mutex
	lanes  map[model.Priority][]*model.DispatchTask
	notify chan struct{}
	closed bool
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		lanes:  make(map[model.Priority][]*model.DispatchTask, 3),
		notify: make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *model.DispatchTask) error {
	if task == nil {
		return domain.ErrInvalidArgument
	}
	lane := task.Priority
	if lane != model.PriorityHigh && lane != model.PriorityLow {
		lane = model.PriorityDefault
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrQueueClosed
	}
	q.lanes[lane] = append(q.lanes[lane], task)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue blocks until a task is available, the queue closes, or ctx is
// cancelled. The wakeup channel can miss signals under contention, so idle
// waiters also re-check on a short tick.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*model.DispatchTask, error) {
	for {
		q.mu.Lock()
		for _, lane := range laneOrder {
			if items := q.lanes[lane]; len(items) > 0 {
				task := items[0]
				q.lanes[lane] = items[1:]
				q.mu.Unlock()
				return task, nil
			}
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, domain.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) Depth(ctx context.Context) (map[model.Priority]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	depth := make(map[model.Priority]int, 3)
	for _, lane := range laneOrder {
		depth[lane] = len(q.lanes[lane])
	}
	return depth, nil
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}
