package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache with lazy expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the stored value. Expired entries are dropped on read.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(entry.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return slices.Clone(entry.value), true, nil
}

// Set stores a copy of value. TTL<=0 is a no-op.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:     slices.Clone(value),
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Delete removes a value. Idempotent.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ Cache = (*MemoryCache)(nil)
