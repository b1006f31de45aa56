package health

import (
	"context"
	"fmt"
	"time"
)

// PingFunc probes a remote dependency and returns nil when it is reachable.
type PingFunc func(ctx context.Context) error

// DependencyCheckerConfig configures a DependencyChecker.
type DependencyCheckerConfig struct {
	// Name identifies the dependency, e.g. "postgres" or "redis".
	Name string

	// Ping probes the dependency.
	Ping PingFunc

	// Critical marks the dependency as required for correct results.
	// A failing critical dependency is Unhealthy; any other is Degraded.
	Critical bool

	// Timeout bounds a single probe.
	// Default: 2 seconds
	Timeout time.Duration
}

// DependencyChecker reports the reachability of a collaborator such as the
// record store or the cache transport.
type DependencyChecker struct {
	config DependencyCheckerConfig
}

// NewDependencyChecker creates a checker from config.
func NewDependencyChecker(config DependencyCheckerConfig) *DependencyChecker {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	return &DependencyChecker{config: config}
}

// Name returns the dependency name.
func (d *DependencyChecker) Name() string {
	return d.config.Name
}

// Ping probes the dependency within the configured timeout.
func (d *DependencyChecker) Ping(ctx context.Context) error {
	if d.config.Ping == nil {
		return fmt.Errorf("%w: %s has no probe", ErrCheckFailed, d.config.Name)
	}
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()
	return d.config.Ping(ctx)
}

// Check performs the probe and maps failure to Degraded or Unhealthy.
func (d *DependencyChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	details := map[string]any{
		"dependency": d.config.Name,
		"critical":   d.config.Critical,
	}

	if err := d.Ping(ctx); err != nil {
		msg := fmt.Sprintf("%s unreachable", d.config.Name)
		if d.config.Critical {
			return Unhealthy(msg, err).WithDetails(details)
		}
		r := Degraded(msg).WithDetails(details)
		r.Error = err
		return r
	}

	return Healthy(fmt.Sprintf("%s reachable", d.config.Name)).WithDetails(details)
}

var _ PingChecker = (*DependencyChecker)(nil)
