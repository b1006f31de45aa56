package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds how long a single call may take.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. Non-positive durations default to 30s.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 30 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured bound.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a derived deadline. If the deadline passes first,
// Execute returns ErrTimeout without waiting for op; op observes the
// cancelled context and is expected to return promptly.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
