package cache

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy indicates a negative or inconsistent TTL configuration.
var ErrInvalidPolicy = errors.New("cache: invalid policy")

// Policy maps key prefixes to time-to-live values.
type Policy struct {
	// DefaultTTL applies to prefixes without an override.
	// Zero disables caching for those prefixes.
	DefaultTTL time.Duration

	// MaxTTL clamps every TTL. Zero means no maximum.
	MaxTTL time.Duration

	// Overrides holds per-prefix TTLs.
	Overrides map[string]time.Duration
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// WithOverride returns a copy of p with the TTL for prefix set to ttl.
func (p Policy) WithOverride(prefix string, ttl time.Duration) Policy {
	out := make(map[string]time.Duration, len(p.Overrides)+1)
	for k, v := range p.Overrides {
		out[k] = v
	}
	out[prefix] = ttl
	p.Overrides = out
	return p
}

// TTLFor returns the effective TTL for keys under prefix.
func (p Policy) TTLFor(prefix string) time.Duration {
	ttl, ok := p.Overrides[prefix]
	if !ok {
		ttl = p.DefaultTTL
	}
	return p.EffectiveTTL(ttl)
}

// EffectiveTTL clamps ttl to MaxTTL. Non-positive values disable caching.
func (p Policy) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}

// Validate rejects negative durations.
func (p Policy) Validate() error {
	if p.DefaultTTL < 0 || p.MaxTTL < 0 {
		return fmt.Errorf("%w: negative default or max TTL", ErrInvalidPolicy)
	}
	for prefix, ttl := range p.Overrides {
		if ttl < 0 {
			return fmt.Errorf("%w: negative TTL for %q", ErrInvalidPolicy, prefix)
		}
	}
	return nil
}
