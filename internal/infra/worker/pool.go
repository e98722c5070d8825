// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/ports/repository"
	"catering-platform/internal/infra/metrics"
)

// Pool runs N workers, each blocking on the queue and handing tasks to the
// dispatcher. Stop is graceful: in-flight tasks finish before Wait returns.
type Pool struct {
	wg    sync.WaitGroup
	queue repository.TaskQueue
	disp  *Dispatcher
	n     int
	log   *zerolog.Logger
}

func NewPool(n int, queue repository.TaskQueue, disp *Dispatcher, log *zerolog.Logger) *Pool {
	if n <= 0 {
		n = 4
	}
	return &Pool{queue: queue, disp: disp, n: n, log: log}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.wg.Add(1)
	go p.reportDepth(ctx)
	p.log.Info().Int("workers", p.n).Msg("dispatch pool started")
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		task, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrQueueClosed) {
				p.log.Debug().Int("worker", id).Msg("worker stopping")
				return
			}
			p.log.Error().Err(err).Int("worker", id).Msg("dequeue failed")
			continue
		}
		p.disp.Process(ctx, task)
	}
}

func (p *Pool) reportDepth(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := p.queue.Depth(ctx)
			if err != nil {
				continue
			}
			for lane, n := range depth {
				metrics.SetQueueDepth(string(lane), n)
			}
		}
	}
}
