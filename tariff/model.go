package tariff

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// StatusActive is the only rate status eligible for calculation.
const StatusActive = "ACTIVE"

// TerritoryCodeLength is the exact length of a territory code.
const TerritoryCodeLength = 3

// Component is one part of an item's bill of materials. Identity is
// ComponentID alone.
type Component struct {
	ComponentID  string `json:"componentId"`
	Description  string `json:"description"`
	MaterialType string `json:"materialType"`
}

// Equal reports whether c and o are the same component.
func (c Component) Equal(o Component) bool {
	return c.ComponentID == o.ComponentID
}

// TariffRate is the duty rate attached to an item or component for one
// territory.
type TariffRate struct {
	TariffID        string          `json:"tariffId"`
	Rate            decimal.Decimal `json:"rate"`
	Level           string          `json:"level"`
	EntityID        string          `json:"entityId"`
	TerritoryCode   string          `json:"territoryCode"`
	StartDate       *time.Time      `json:"startDate,omitempty"`
	EndDate         *time.Time      `json:"endDate,omitempty"`
	Status          string          `json:"status"`
	PolicyVersionID string          `json:"policyVersionId,omitempty"`
}

// ActiveOn reports whether r is eligible on the calendar day of t: status
// ACTIVE, started on or before that day and ending on or after it. A nil end
// date is open.
func (r TariffRate) ActiveOn(t time.Time) bool {
	if r.Status != StatusActive {
		return false
	}
	day := civilDay(t)
	if r.StartDate != nil && civilDay(*r.StartDate).After(day) {
		return false
	}
	if r.EndDate != nil && civilDay(*r.EndDate).Before(day) {
		return false
	}
	return true
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RateRequest identifies one entity-in-territory rate lookup.
type RateRequest struct {
	EntityID      string
	TerritoryCode string
}

func (r RateRequest) String() string {
	return r.EntityID + "_" + r.TerritoryCode
}

// CombinedTariff is the result of one calculation and the unit of top-level
// caching.
type CombinedTariff struct {
	ItemID         string          `json:"itemId"`
	TerritoryCode  string          `json:"territoryCode"`
	ItemRate       decimal.Decimal `json:"itemRate"`
	ComponentRate  decimal.Decimal `json:"componentRate"`
	FinalRate      decimal.Decimal `json:"finalRate"`
	Policy         Policy          `json:"policy"`
	ComponentsUsed []string        `json:"componentsUsed"`
	CalculatedAt   time.Time       `json:"calculatedAt"`
}

// NormalizeTerritory trims and upper-cases code and checks its length.
func NormalizeTerritory(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if utf8.RuneCountInString(code) != TerritoryCodeLength {
		return "", fmt.Errorf("%w: territory code %q must be %d characters",
			ErrInvalidArgument, code, TerritoryCodeLength)
	}
	return code, nil
}

// canonicalRate returns d as it reads back from its JSON form, so a computed
// result and its cached copy are the same value.
func canonicalRate(d decimal.Decimal) decimal.Decimal {
	return decimal.RequireFromString(d.String())
}

// NormalizeEntity trims id and rejects empty identifiers. kind names the
// identifier in the error, e.g. "item" or "entity".
func NormalizeEntity(kind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s id is empty", ErrInvalidArgument, kind)
	}
	return id, nil
}
