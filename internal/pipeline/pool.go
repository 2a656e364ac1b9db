package pipeline

import (
	"context"
	"sync"
)

// WorkerPool bounds how many detached pipeline runs execute at once.
// Submit returns a channel that closes when the job finishes, so
// callers (and tests) can observe completion deterministically, and
// Wait drains every scheduled job during shutdown.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

func (p *WorkerPool) Submit(ctx context.Context, job func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(done)

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
			job(ctx)
		case <-ctx.Done():
		}
	}()
	return done
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
