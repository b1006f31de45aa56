// Package tariff computes the effective import duty rate of an item sold into
// a destination territory.
//
// A Service combines the item's own rate with the rates of its bill-of-materials
// components under a combination Policy. Every lookup goes through the
// cache-aside Accessor from package cache, and component rates are resolved in
// parallel on a shared resilience.Pool:
//
//	CHECK_CACHE
//	  -> RESOLVE_BOM_AND_ITEM_RATE   (two pool tasks, both awaited)
//	  -> RESOLVE_COMPONENT_RATES     (resilience.FanOut, failures excluded)
//	  -> RESOLVE_POLICY              (no id, bad id or no match: ADDITIVE)
//	  -> COMBINE                     (Combine, exact decimal arithmetic)
//	  -> CACHE_WRITE                 (best effort)
//	  -> DONE
//
// A failure in any resolution step ends the calculation with a
// *CalculationError and nothing is cached.
//
// Record storage is reached through the RecordLookup interface; see
// store/postgres and store/memory for implementations.
package tariff
