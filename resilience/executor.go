package resilience

import (
	"context"
	"time"
)

// Executor composes circuit breaking, retry and timeout around a call.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs op through the configured patterns. From the outside in:
// circuit breaker, retry, timeout. An open circuit therefore short-circuits
// before any retry budget is spent, and each attempt gets its own deadline.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	call := op

	if e.timeout != nil {
		inner := call
		call = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
	}
	if e.retry != nil {
		inner := call
		call = func(ctx context.Context) error { return e.retry.Execute(ctx, inner) }
	}
	if e.circuitBreaker != nil {
		inner := call
		call = func(ctx context.Context) error { return e.circuitBreaker.Execute(ctx, inner) }
	}

	return call(ctx)
}
