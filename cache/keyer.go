package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Keyer derives cache keys from a call's identity.
//
// Contract:
// - Determinism: equal inputs produce equal keys, regardless of map iteration order.
// - Total: Key never fails; it degrades to a weaker hash instead.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(prefix, function string, args ...any) string
}

// DefaultKeyer produces "{prefix}:{sha256-hex}" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() DefaultKeyer {
	return DefaultKeyer{}
}

// Key digests function and the canonical JSON form of args with SHA-256.
//
// If args cannot be encoded (channels, funcs, NaN), the key falls back to
// "{prefix}:{function}:{fnv64a-hex}" over their %#v rendering. Fallback keys
// are still deterministic for printable inputs but carry no collision
// guarantees.
func (DefaultKeyer) Key(prefix, function string, args ...any) string {
	canonical, err := canonicalize(args)
	if err != nil {
		return fallbackKey(prefix, function, args)
	}

	h := sha256.New()
	h.Write([]byte(function))
	h.Write([]byte{':'})
	h.Write(canonical)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Key derives a key with the DefaultKeyer.
func Key(prefix, function string, args ...any) string {
	return DefaultKeyer{}.Key(prefix, function, args...)
}

// canonicalize encodes args as a JSON array. encoding/json emits map keys in
// sorted order, which makes the result independent of map iteration.
func canonicalize(args []any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func fallbackKey(prefix, function string, args []any) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%#v", function, args)
	return fmt.Sprintf("%s:%s:%016x", prefix, function, h.Sum64())
}

var _ Keyer = DefaultKeyer{}
