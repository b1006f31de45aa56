package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errDown = errors.New("dependency down")

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
	if cb.config.MaxFailures != 5 || cb.config.ResetTimeout != 30*time.Second || cb.config.HalfOpenMaxRequests != 1 {
		t.Errorf("unexpected defaults: %+v", cb.config)
	}
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Minute,
		Now:          clock.Now,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, fail)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state after 2 failures = %v, want closed", cb.State())
	}

	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit must reject without calling: err=%v called=%v", err, called)
	}

	clock.Advance(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after reset timeout = %v, want half-open", cb.State())
	}

	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state after successful probe = %v, want closed", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second, Now: clock.Now})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Second)
	_ = cb.Execute(ctx, fail)

	if cb.State() != StateOpen {
		t.Fatalf("state after failed probe = %v, want open", cb.State())
	}
	if m := cb.Metrics(); m.Rejected != 0 || m.Transitions != 3 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed)
	_ = cb.Execute(ctx, fail)

	if cb.State() != StateClosed {
		t.Errorf("non-consecutive failures opened the circuit")
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	ignored := errors.New("miss")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, ignored) },
	})

	_ = cb.Execute(context.Background(), func(context.Context) error { return ignored })
	if cb.State() != StateClosed {
		t.Errorf("filtered error opened the circuit")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1})
	_ = cb.Execute(context.Background(), fail)
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state after Reset = %v, want closed", cb.State())
	}
}
