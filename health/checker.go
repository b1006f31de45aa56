package health

import (
	"context"
	"time"
)

// Status represents the health status of a component. Higher values are
// worse, so the status of a group is the maximum of its members.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component is failing without affecting
	// correctness.
	StatusDegraded
	// StatusUnhealthy indicates results cannot be produced.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes s as its name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result contains the outcome of a health check.
type Result struct {
	Status  Status
	Message string

	// Details holds checker-specific metadata.
	Details map[string]any

	Duration  time.Duration
	Timestamp time.Time

	// Error is the cause of a non-healthy status, if known.
	Error error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is the interface for health checks.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// PingChecker is a Checker whose probe can be called directly.
type PingChecker interface {
	Checker
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
