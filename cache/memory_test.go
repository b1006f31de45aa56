package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if v, ok, err := c.Get(ctx, "missing"); ok || v != nil || err != nil {
		t.Fatalf("Get(missing) = (%v, %v, %v), want miss", v, ok, err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get(k) = (%q, %v, %v)", got, ok, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete should be idempotent, got %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := newManualClock()
	c := NewMemoryCache(WithClock(clock.Now))
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Hour)

	clock.Advance(59 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	clock.Advance(time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("entry still present at its TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted on read, Len = %d", c.Len())
	}
}

func TestMemoryCache_ZeroTTLNotStored(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_ = c.Set(ctx, "zero", []byte("v"), 0)
	_ = c.Set(ctx, "negative", []byte("v"), -time.Second)

	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	in := []byte("abc")
	_ = c.Set(ctx, "k", in, time.Minute)
	in[0] = 'X'

	out, _, _ := c.Get(ctx, "k")
	if string(out) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", out)
	}
	out[1] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("returned value aliased stored slice: %q", again)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = c.Set(ctx, key, []byte(key), time.Minute)
			_, _, _ = c.Get(ctx, key)
			if i%7 == 0 {
				_ = c.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
