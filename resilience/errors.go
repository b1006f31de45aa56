package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded wraps the last error once retry attempts are exhausted.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrPoolClosed is returned when submitting to a closed pool.
	ErrPoolClosed = errors.New("resilience: pool is closed")

	// ErrTaskPanic wraps a value recovered from a panicking task.
	ErrTaskPanic = errors.New("resilience: task panicked")
)
