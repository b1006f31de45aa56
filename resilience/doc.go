// Package resilience provides the concurrency and failure-isolation
// primitives used around tariff lookups.
//
//   - Pool: a bounded worker pool with a fixed ceiling. Excess work queues,
//     Close drains. One pool is shared by every calculation.
//   - Submit / Future: run one task on the pool and join it later.
//   - FanOut: run one task per key and return exactly one Outcome per key;
//     a failing task yields an absent Outcome instead of aborting the batch.
//   - CircuitBreaker, Retry, Timeout and Executor: guard calls to remote
//     collaborators such as the cache transport.
//
// Usage:
//
//	pool := resilience.NewPool(resilience.PoolConfig{Size: 20})
//	defer pool.Close()
//
//	rates := resilience.FanOut(ctx, pool, componentIDs,
//	    func(ctx context.Context, id string) (Rate, bool, error) {
//	        return lookup(ctx, id)
//	    })
package resilience
