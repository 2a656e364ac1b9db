package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_RunsSubmittedJobs(t *testing.T) {
	pool := NewWorkerPool(2)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		pool.Submit(context.Background(), func(ctx context.Context) {
			count.Add(1)
		})
	}
	pool.Wait()

	if got := count.Load(); got != 10 {
		t.Errorf("Expected 10 jobs to run, got %d", got)
	}
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(2)

	var active, peak atomic.Int32
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		pool.Submit(context.Background(), func(ctx context.Context) {
			now := active.Add(1)
			mu.Lock()
			if now > peak.Load() {
				peak.Store(now)
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
		})
	}
	pool.Wait()

	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent jobs, observed %d", peak.Load())
	}
}

func TestWorkerPool_CompletionChannel(t *testing.T) {
	pool := NewWorkerPool(1)

	ran := false
	done := pool.Submit(context.Background(), func(ctx context.Context) {
		ran = true
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for completion signal")
	}
	if !ran {
		t.Error("Expected job to have run before completion signal")
	}
}

func TestWorkerPool_CancelledContextSkipsQueuedJob(t *testing.T) {
	pool := NewWorkerPool(1)

	block := make(chan struct{})
	pool.Submit(context.Background(), func(ctx context.Context) {
		<-block
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	done := pool.Submit(ctx, func(ctx context.Context) {
		ran = true
	})

	<-done
	close(block)
	pool.Wait()

	if ran {
		t.Error("Expected queued job to be skipped after context cancellation")
	}
}
