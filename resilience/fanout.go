package resilience

import (
	"context"
	"fmt"
	"sync"
)

// Outcome is the per-key result of a FanOut task.
//
// OK is true only when the task succeeded and produced a value. A task that
// failed, panicked, or reported no value yields OK=false; Err carries the
// failure, if any, for logging.
type Outcome[V any] struct {
	Value V
	OK    bool
	Err   error
}

// Present returns the value and whether it exists.
func (o Outcome[V]) Present() (V, bool) {
	return o.Value, o.OK
}

// FanOutFunc resolves one key. The boolean reports whether a value exists.
type FanOutFunc[K comparable, V any] func(ctx context.Context, key K) (V, bool, error)

// FanOut runs fn for every distinct key on the pool and waits for all of
// them. The returned map holds exactly one Outcome per distinct key.
//
// A failing task never aborts the batch and is not retried; its key maps to
// an absent Outcome. Tasks run detached from ctx cancellation and the call
// returns only after every task has finished.
func FanOut[K comparable, V any](ctx context.Context, p *Pool, keys []K, fn FanOutFunc[K, V]) map[K]Outcome[V] {
	results := make(map[K]Outcome[V], len(keys))
	if len(keys) == 0 {
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(key K, o Outcome[V]) {
		mu.Lock()
		results[key] = o
		mu.Unlock()
	}

	seen := make(map[K]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		wg.Add(1)
		err := p.Go(ctx, func(ctx context.Context) {
			defer wg.Done()
			record(key, runIsolated(ctx, key, fn))
		})
		if err != nil {
			wg.Done()
			record(key, Outcome[V]{Err: err})
		}
	}

	wg.Wait()
	return results
}

func runIsolated[K comparable, V any](ctx context.Context, key K, fn FanOutFunc[K, V]) (out Outcome[V]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[V]{Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
		}
	}()

	v, ok, err := fn(ctx, key)
	if err != nil {
		return Outcome[V]{Err: err}
	}
	if !ok {
		return Outcome[V]{}
	}
	return Outcome[V]{Value: v, OK: true}
}

// Present collects the values of successful outcomes.
func Present[K comparable, V any](outcomes map[K]Outcome[V]) map[K]V {
	out := make(map[K]V, len(outcomes))
	for k, o := range outcomes {
		if o.OK {
			out[k] = o.Value
		}
	}
	return out
}
