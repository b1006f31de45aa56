package tariff

import "context"

// RecordLookup resolves bills of materials, rates and combination policies
// from the authoritative record store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: malformed identifiers wrap ErrInvalidArgument; I/O failures
//     should wrap ErrLookup.
//   - Eligibility: ResolveRate returns only ACTIVE rates whose window, and
//     whose policy version's window, covers the current day. No eligible rate
//     is (TariffRate{}, false, nil).
type RecordLookup interface {
	// ResolveComponents returns the item's components ordered by ComponentID.
	ResolveComponents(ctx context.Context, itemID string) ([]Component, error)

	// ResolveRate returns the best eligible rate for entityID in territoryCode.
	ResolveRate(ctx context.Context, entityID, territoryCode string) (TariffRate, bool, error)

	// ResolveCombinationPolicy returns the policy of an active policy version.
	// It returns PolicyAdditive when no active version matches.
	ResolveCombinationPolicy(ctx context.Context, policyVersionID string) (Policy, error)
}

// Pinger is implemented by lookups backed by a remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}
