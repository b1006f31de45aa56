package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/tariffops/observe"
)

// Accessor is the cache-aside layer used by the calculation core.
//
// The cache is an optimisation, never a source of truth: Read reports a miss
// and Write does nothing whenever the backend or the codec fails. Failures
// are logged at warn level and never returned.
type Accessor struct {
	cache   Cache
	logger  observe.Logger
	metrics observe.Metrics
}

// AccessorOption configures an Accessor.
type AccessorOption func(*Accessor)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(l observe.Logger) AccessorOption {
	return func(a *Accessor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the recorder for hit/miss counts.
func WithMetrics(m observe.Metrics) AccessorOption {
	return func(a *Accessor) {
		if m != nil {
			a.metrics = m
		}
	}
}

// NewAccessor wraps c. A nil c yields an accessor that always misses.
func NewAccessor(c Cache, opts ...AccessorOption) *Accessor {
	a := &Accessor{
		cache:   c,
		logger:  observe.NewNopLogger(),
		metrics: observe.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithOp(observe.OpMeta{Component: "cache", Name: "accessor"})
	return a
}

// Read decodes the value stored under key into dst and reports whether it
// did. When Read returns false the contents of dst are unspecified.
func (a *Accessor) Read(ctx context.Context, key string, dst any) bool {
	if a == nil || a.cache == nil {
		return false
	}
	if err := ValidateKey(key); err != nil {
		a.warn(ctx, "cache read skipped", key, err)
		return false
	}

	raw, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.warn(ctx, "cache read failed", key, err)
		a.metrics.RecordCacheLookup(ctx, KeyPrefix(key), false)
		return false
	}
	if !ok {
		a.metrics.RecordCacheLookup(ctx, KeyPrefix(key), false)
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		a.warn(ctx, "cache decode failed", key, fmt.Errorf("%w: %w", ErrCodec, err))
		a.metrics.RecordCacheLookup(ctx, KeyPrefix(key), false)
		return false
	}

	a.metrics.RecordCacheLookup(ctx, KeyPrefix(key), true)
	return true
}

// Write encodes value and stores it under key for ttl. TTL<=0 is a no-op.
func (a *Accessor) Write(ctx context.Context, key string, value any, ttl time.Duration) {
	if a == nil || a.cache == nil || ttl <= 0 {
		return
	}
	if err := ValidateKey(key); err != nil {
		a.warn(ctx, "cache write skipped", key, err)
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		a.warn(ctx, "cache encode failed", key, fmt.Errorf("%w: %w", ErrCodec, err))
		return
	}
	if err := a.cache.Set(ctx, key, raw, ttl); err != nil {
		a.warn(ctx, "cache write failed", key, err)
	}
}

// Invalidate removes key, absorbing failures like Write.
func (a *Accessor) Invalidate(ctx context.Context, key string) {
	if a == nil || a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, key); err != nil {
		a.warn(ctx, "cache delete failed", key, err)
	}
}

// Ping reports backend reachability when the cache supports it.
func (a *Accessor) Ping(ctx context.Context) error {
	if a == nil || a.cache == nil {
		return ErrNilCache
	}
	if p, ok := a.cache.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (a *Accessor) warn(ctx context.Context, msg, key string, err error) {
	kind := "transport"
	if errors.Is(err, ErrCodec) {
		kind = "codec"
	} else if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrKeyTooLong) {
		kind = "key"
	}
	a.logger.Warn(ctx, msg,
		observe.F("cache.key", key),
		observe.F("cache.failure", kind),
		observe.F("error", err),
	)
}

// LoadFunc fetches a value on a cache miss. The boolean reports whether the
// value exists; absent values are returned but not cached.
type LoadFunc[T any] func(ctx context.Context) (T, bool, error)

// Through implements read-through caching for one key: a hit returns the
// cached value, a miss calls load and caches a present result for ttl.
// Errors from load are returned unchanged and never cached.
func Through[T any](ctx context.Context, a *Accessor, key string, ttl time.Duration, load LoadFunc[T]) (T, bool, error) {
	var cached T
	if a.Read(ctx, key, &cached) {
		return cached, true, nil
	}

	v, ok, err := load(ctx)
	if err != nil || !ok {
		return v, ok, err
	}
	a.Write(ctx, key, v, ttl)
	return v, true, nil
}
