package resilience

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize is the worker ceiling used when PoolConfig.Size is unset.
const DefaultPoolSize = 20

// PoolConfig configures the worker pool.
type PoolConfig struct {
	// Size is the maximum number of tasks running at once.
	// Default: 20
	Size int
}

// Pool is a bounded worker pool shared by every caller that holds it.
//
// Submissions beyond Size queue in arrival order and never fail while the
// pool is open. Tasks are never cancelled by the pool. Close stops new
// submissions and waits for queued and running tasks to finish.
type Pool struct {
	size int64
	sem  *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	active    atomic.Int64
	maxActive atomic.Int64
	queued    atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// NewPool creates a pool with a fixed concurrency ceiling.
func NewPool(config PoolConfig) *Pool {
	if config.Size <= 0 {
		config.Size = DefaultPoolSize
	}
	return &Pool{
		size: int64(config.Size),
		sem:  semaphore.NewWeighted(int64(config.Size)),
	}
}

// Size returns the concurrency ceiling.
func (p *Pool) Size() int {
	return int(p.size)
}

// Go schedules task and returns without waiting for a free worker.
//
// The task receives a context detached from ctx's cancellation, so a caller
// giving up does not interrupt work already handed to the pool. A panic in
// task is recovered and counted; it never takes the pool down.
func (p *Pool) Go(ctx context.Context, task func(context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	p.queued.Add(1)
	taskCtx := context.WithoutCancel(ctx)

	go func() {
		defer p.wg.Done()

		// Background never cancels, so Acquire only returns once a slot frees.
		_ = p.sem.Acquire(context.Background(), 1)
		p.queued.Add(-1)
		p.markActive()

		defer func() {
			if r := recover(); r != nil {
				p.panicked.Add(1)
			}
			p.active.Add(-1)
			p.completed.Add(1)
			p.sem.Release(1)
		}()

		task(taskCtx)
	}()
	return nil
}

func (p *Pool) markActive() {
	n := p.active.Add(1)
	for {
		peak := p.maxActive.Load()
		if n <= peak || p.maxActive.CompareAndSwap(peak, n) {
			return
		}
	}
}

// Close rejects further submissions and blocks until every accepted task
// has finished. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Metrics returns current pool statistics.
func (p *Pool) Metrics() PoolMetrics {
	active := p.active.Load()
	return PoolMetrics{
		Size:      int(p.size),
		Active:    int(active),
		MaxActive: int(p.maxActive.Load()),
		Queued:    int(p.queued.Load()),
		Available: int(p.size - active),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

// PoolMetrics contains pool statistics.
type PoolMetrics struct {
	Size      int
	Active    int
	MaxActive int
	Queued    int
	Available int
	Completed int64
	Panicked  int64
}

// Future is the pending result of a task submitted with Submit.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Submit runs fn on the pool and returns a Future for its result.
//
// If the pool is closed the Future resolves immediately with ErrPoolClosed.
// A panic in fn resolves the Future with an error wrapping ErrTaskPanic.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	err := p.Go(ctx, func(ctx context.Context) {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
			}
		}()
		f.value, f.err = fn(ctx)
	})
	if err != nil {
		f.err = err
		close(f.done)
	}
	return f
}

// Await blocks until the task finishes and returns its result.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.value, f.err
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}
