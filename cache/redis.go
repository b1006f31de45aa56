package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/tariffops/resilience"
)

// RedisCache stores entries in Redis with native key expiry.
//
// Every call runs through a resilience.Executor. The default executor opens a
// circuit after repeated transport failures, so an unreachable Redis costs one
// fast ErrCircuitOpen per call instead of a dial timeout.
type RedisCache struct {
	client redis.UniversalClient
	exec   *resilience.Executor
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithExecutor replaces the default resilience executor.
func WithExecutor(e *resilience.Executor) RedisOption {
	return func(c *RedisCache) {
		if e != nil {
			c.exec = e
		}
	}
}

// DefaultRedisExecutor bounds each call by timeout and trips after five
// consecutive failures for thirty seconds.
func DefaultRedisExecutor(timeout time.Duration) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		})),
		resilience.WithTimeout(timeout),
	)
}

// NewRedisCache wraps client. The caller owns the client's lifecycle.
func NewRedisCache(client redis.UniversalClient, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		exec:   DefaultRedisExecutor(500 * time.Millisecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the stored bytes; a missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		value []byte
		found bool
	)
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = b, true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %w", ErrTransport, key, err)
	}
	return value, found, nil
}

// Set stores value with SET ... PX ttl. TTL<=0 is a no-op.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrTransport, key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		return c.client.Del(ctx, key).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrTransport, key, err)
	}
	return nil
}

// Ping checks connectivity, bypassing the circuit breaker so health checks
// observe the real backend state.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrTransport, err)
	}
	return nil
}

var (
	_ Cache  = (*RedisCache)(nil)
	_ Pinger = (*RedisCache)(nil)
)
