package tariff

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a malformed item, entity, territory or
	// policy-version identifier. It is never retried.
	ErrInvalidArgument = errors.New("tariff: invalid argument")

	// ErrLookup reports a record store I/O failure.
	ErrLookup = errors.New("tariff: lookup failed")

	// ErrNilLookup is returned by NewService without a RecordLookup.
	ErrNilLookup = errors.New("tariff: record lookup is nil")

	// ErrInvalidCachePolicy reports cache TTLs that break the result/BOM ordering.
	ErrInvalidCachePolicy = errors.New("tariff: invalid cache policy")

	// ErrUnknownPolicy reports a combination policy name that is not recognised.
	ErrUnknownPolicy = errors.New("tariff: unknown combination policy")
)

// Stage names the step of the calculation state machine that failed.
// Component rate resolution, combining and the cache write absorb their
// failures, so only these steps can end a calculation.
type Stage string

const (
	StageCheckCache            Stage = "check_cache"
	StageResolveBOMAndItemRate Stage = "resolve_bom_and_item_rate"
	StageResolvePolicy         Stage = "resolve_policy"
)

// CalculationError is returned by CalculateTotalTariff when the calculation
// reaches the FAILED state. Err is the first unrecoverable cause.
type CalculationError struct {
	ItemID        string
	TerritoryCode string
	Stage         Stage
	Err           error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("tariff: calculation failed for item %q in %q at %s: %v",
		e.ItemID, e.TerritoryCode, e.Stage, e.Err)
}

func (e *CalculationError) Unwrap() error {
	return e.Err
}

// asLookupError classifies err so callers can always match it with
// ErrInvalidArgument or ErrLookup.
func asLookupError(err error) error {
	if err == nil || errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrLookup) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrLookup, err)
}
