package tariff

import (
	"fmt"
	"strings"
)

// Policy selects how an item rate and the summed component rates reduce to a
// final rate. The zero value is PolicyAdditive.
type Policy uint8

const (
	// PolicyAdditive adds the item rate and the component rates.
	PolicyAdditive Policy = iota
	// PolicyMaximum takes the larger of the two.
	PolicyMaximum
	// PolicyMinimum takes the smaller of the two.
	PolicyMinimum
	// PolicyItem takes the item rate when it is positive, otherwise the components.
	PolicyItem
	// PolicyComponent ignores the item rate.
	PolicyComponent
)

var policyNames = [...]string{
	PolicyAdditive:  "ADDITIVE",
	PolicyMaximum:   "MAXIMUM",
	PolicyMinimum:   "MINIMUM",
	PolicyItem:      "ITEM",
	PolicyComponent: "COMPONENT",
}

// Policies returns every known policy in declaration order.
func Policies() []Policy {
	return []Policy{PolicyAdditive, PolicyMaximum, PolicyMinimum, PolicyItem, PolicyComponent}
}

// Valid reports whether p is one of the declared policies.
func (p Policy) Valid() bool {
	return int(p) < len(policyNames)
}

func (p Policy) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Policy(%d)", uint8(p))
	}
	return policyNames[p]
}

// ParsePolicy parses an exact policy name, ignoring case and surrounding space.
func ParsePolicy(s string) (Policy, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range policyNames {
		if n == name {
			return Policy(i), nil
		}
	}
	return PolicyAdditive, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// MatchPolicy maps a free-form policy description, as stored on policy-version
// records, to a Policy. Matching is case-insensitive and by substring, checked
// in the order additive, max, min, item, component. Anything else is
// PolicyAdditive.
func MatchPolicy(description string) Policy {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "additive"):
		return PolicyAdditive
	case strings.Contains(d, "max"):
		return PolicyMaximum
	case strings.Contains(d, "min"):
		return PolicyMinimum
	case strings.Contains(d, "item"):
		return PolicyItem
	case strings.Contains(d, "component"):
		return PolicyComponent
	default:
		return PolicyAdditive
	}
}

// MarshalText encodes p by name.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a policy name.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
