package health

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds a full round of checks.
const DefaultCheckTimeout = 10 * time.Second

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 10 seconds
	Timeout time.Duration
}

// Aggregator runs registered checkers concurrently and combines their
// results.
type Aggregator struct {
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	timeout := DefaultCheckTimeout
	if len(config) > 0 && config[0].Timeout > 0 {
		timeout = config[0].Timeout
	}
	return &Aggregator{
		timeout:  timeout,
		checkers: make(map[string]Checker),
	}
}

// Register adds or replaces the checker for name.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// CheckerNames returns registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrCheckerNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered check concurrently.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	checkers := make(map[string]Checker, len(a.checkers))
	for name, checker := range a.checkers {
		checkers[name] = checker
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]Result, len(checkers))
	)
	for name, checker := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := runCheck(ctx, checker)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// OverallStatus returns the worst status in results. No results is healthy.
func OverallStatus(results map[string]Result) Status {
	status := StatusHealthy
	for _, r := range results {
		status = max(status, r.Status)
	}
	return status
}

// Report is one round of checks.
type Report struct {
	Status    Status
	Results   map[string]Result
	Timestamp time.Time
}

// Report runs every check and summarizes the outcome.
func (a *Aggregator) Report(ctx context.Context) Report {
	start := time.Now()
	results := a.CheckAll(ctx)
	return Report{
		Status:    OverallStatus(results),
		Results:   results,
		Timestamp: start,
	}
}

// Err joins the causes of every non-healthy result, ordered by checker
// name, or returns nil when all checks passed.
func (r Report) Err() error {
	names := make([]string, 0, len(r.Results))
	for name, res := range r.Results {
		if res.Status != StatusHealthy {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	slices.Sort(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		res := r.Results[name]
		cause := res.Error
		if cause == nil {
			cause = errors.New(res.Message)
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, cause))
	}
	return errors.Join(errs...)
}

// runCheck runs checker, giving up when ctx ends even if the checker
// ignores it.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
