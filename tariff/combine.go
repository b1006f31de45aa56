package tariff

import "github.com/shopspring/decimal"

// Calculation is the output of Combine.
type Calculation struct {
	ItemRate      decimal.Decimal
	ComponentRate decimal.Decimal
	FinalRate     decimal.Decimal
}

// Combine reduces an optional item rate and a set of component rates to a
// final rate under policy. An absent item rate counts as zero; an unknown
// policy behaves as PolicyAdditive. Combine is pure and exact.
func Combine(itemRate decimal.NullDecimal, componentRates map[string]decimal.Decimal, policy Policy) Calculation {
	item := decimal.Zero
	if itemRate.Valid {
		item = itemRate.Decimal
	}

	sum := decimal.Zero
	for _, r := range componentRates {
		sum = sum.Add(r)
	}

	var final decimal.Decimal
	switch policy {
	case PolicyAdditive:
		final = item.Add(sum)
	case PolicyMaximum:
		final = decimal.Max(item, sum)
	case PolicyMinimum:
		final = decimal.Min(item, sum)
	case PolicyItem:
		if item.IsPositive() {
			final = item
		} else {
			final = sum
		}
	case PolicyComponent:
		final = sum
	default:
		final = item.Add(sum)
	}

	return Calculation{ItemRate: item, ComponentRate: sum, FinalRate: final}
}

// CombineRates is Combine over TariffRate values. ok reports whether the item
// has a rate at all.
func CombineRates(item TariffRate, ok bool, components map[string]TariffRate, policy Policy) Calculation {
	var itemRate decimal.NullDecimal
	if ok {
		itemRate = decimal.NewNullDecimal(item.Rate)
	}
	rates := make(map[string]decimal.Decimal, len(components))
	for id, r := range components {
		rates[id] = r.Rate
	}
	return Combine(itemRate, rates, policy)
}
