package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays grow between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear grows the delay by InitialDelay each attempt.
	BackoffLinear
	// BackoffConstant always waits InitialDelay.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts counts the initial call. Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps any single wait. Default: 30s
	MaxDelay time.Duration

	// Multiplier applies to BackoffExponential. Default: 2.0
	Multiplier float64

	Strategy BackoffStrategy

	// Jitter adds up to 25% random delay per wait.
	Jitter bool

	// RetryIf decides whether an error is worth another attempt.
	// Default: every non-nil error.
	RetryIf func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs failed operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs op until it succeeds, a non-retryable error occurs, attempts
// run out, or ctx is done. Exhaustion wraps the last error with
// ErrMaxRetriesExceeded.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}

		delay := r.Delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (r *Retry) Delay(attempt int) time.Duration {
	var delay time.Duration
	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay
	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)
	default:
		delay = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}
	if r.config.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}
	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
