// Package cache provides the cache-aside layer for tariff lookups.
//
// It contains a byte-oriented Cache interface with in-memory and Redis
// implementations, a deterministic SHA-256 key encoder, per-prefix TTL
// policies, and an Accessor that absorbs every cache failure so callers only
// ever observe hits and misses.
//
//	acc := cache.NewAccessor(cache.NewRedisCache(client), cache.WithLogger(log))
//	key := cache.Key("bom", "resolveBom", itemID)
//	parts, _, err := cache.Through(ctx, acc, key, 2*time.Hour, loadBOM)
package cache
