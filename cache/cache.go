package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrTransport wraps failures talking to the cache backend.
	ErrTransport = errors.New("cache: transport failure")

	// ErrCodec wraps (de)serialization failures of cached values.
	ErrCodec = errors.New("cache: codec failure")
)

// Cache is a byte-oriented key/value store with per-entry expiry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: a miss is (nil, false, nil); errors are reserved for backend
//   failures and should wrap ErrTransport.
type Cache interface {
	// Get retrieves a cached value.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. TTL<=0 means no caching.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a cached value. Idempotent.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by caches backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// KeyPrefix returns the namespace portion of a key produced by Key.
func KeyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
