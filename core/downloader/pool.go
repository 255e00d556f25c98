package downloader

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many blocking subprocess calls run at once. Callers hand
// work to the pool and get a Future back, so a chat handler can wait on it
// (or give up waiting) without owning the blocking call itself.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	active atomic.Int64
}

// NewPool creates a pool with n workers (minimum 1).
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Active returns the number of jobs currently running.
func (p *Pool) Active() int64 { return p.active.Load() }

// Future is the handle of a job submitted to a Pool.
type Future[T any] struct {
	done chan struct{}
	val  T
}

// Wait blocks until the job finishes or ctx is done. The job keeps running
// after ctx is done; only the wait is abandoned.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Go waits for a free worker and starts fn on it. It fails only if ctx is
// done before a worker frees up.
func Go[T any](ctx context.Context, p *Pool, fn func() T) (*Future[T], error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a download worker: %w", err)
	}
	f := &Future[T]{done: make(chan struct{})}
	p.active.Add(1)
	go func() {
		defer close(f.done)
		defer p.sem.Release(1)
		defer p.active.Add(-1)
		f.val = fn()
	}()
	return f, nil
}
