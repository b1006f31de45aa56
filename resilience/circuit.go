package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects every call until ResetTimeout elapses.
	StateOpen
	// StateHalfOpen admits a limited number of probe calls.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of concurrent probes allowed.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called with the breaker lock held; keep it short.
	OnStateChange func(from, to State)

	// IsFailure decides whether an error counts against the circuit.
	// Default: every non-nil error.
	IsFailure func(err error) bool

	// Now overrides the clock. Default: time.Now.
	Now func() time.Time
}

// CircuitBreaker stops calling a dependency that keeps failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probes      int
	rejected    int64
	transitions int64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config}
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshLocked()
	return cb.state
}

// Reset forces the circuit closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.probes = 0
	cb.transitionLocked(StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshLocked()

	switch cb.state {
	case StateOpen:
		cb.rejected++
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.config.IsFailure(err)
	switch cb.state {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openLocked()
		}
	case StateHalfOpen:
		if failed {
			cb.openLocked()
			return
		}
		cb.failures = 0
		cb.transitionLocked(StateClosed)
	}
}

func (cb *CircuitBreaker) openLocked() {
	cb.openedAt = cb.config.Now()
	cb.transitionLocked(StateOpen)
}

// refreshLocked moves an expired open circuit to half-open.
func (cb *CircuitBreaker) refreshLocked() {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.probes = 0
		cb.transitionLocked(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.transitions++
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns current circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refreshLocked()
	return CircuitBreakerMetrics{
		State:       cb.state,
		Failures:    cb.failures,
		Rejected:    cb.rejected,
		Transitions: cb.transitions,
		OpenedAt:    cb.openedAt,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int
	Rejected    int64
	Transitions int64
	OpenedAt    time.Time
}
