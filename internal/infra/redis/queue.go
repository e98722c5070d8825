package redis

import (
	"context"
	"encoding/json"
	"time"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.TaskQueue = (*TaskQueue)(nil)

// Lane keys in strict dequeue order. BLPOP checks keys left to right, which
// is exactly the strict-priority semantic: a non-empty high lane is always
// served before default, and default before low.
var laneKeys = []string{
	"dispatch:lane:high",
	"dispatch:lane:default",
	"dispatch:lane:low",
}

// TaskQueue is the shared, cross-process dispatch queue backed by one Redis
// list per priority lane.
type TaskQueue struct {
	cli *redis.Client
}

func NewTaskQueue(c *Client) *TaskQueue {
	return &TaskQueue{cli: c.cli}
}

func laneKey(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return laneKeys[0]
	case model.PriorityLow:
		return laneKeys[2]
	default:
		return laneKeys[1]
	}
}

func (q *TaskQueue) Enqueue(ctx context.Context, task *model.DispatchTask) error {
	if task == nil {
		return domain.ErrInvalidArgument
	}
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.cli.RPush(ctx, laneKey(task.Priority), b).Err()
}

func (q *TaskQueue) Dequeue(ctx context.Context) (*model.DispatchTask, error) {
	for {
		res, err := q.cli.BLPop(ctx, time.Second, laneKeys...).Result()
		if err == redis.Nil {
			continue // idle timeout, re-check ctx and block again
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		// res is [key, value]
		var task model.DispatchTask
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return nil, err
		}
		return &task, nil
	}
}

func (q *TaskQueue) Depth(ctx context.Context) (map[model.Priority]int, error) {
	depth := make(map[model.Priority]int, 3)
	for lane, key := range map[model.Priority]string{
		model.PriorityHigh:    laneKeys[0],
		model.PriorityDefault: laneKeys[1],
		model.PriorityLow:     laneKeys[2],
	} {
		n, err := q.cli.LLen(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		depth[lane] = int(n)
	}
	return depth, nil
}

func (q *TaskQueue) Close() error { return nil }
