package enums

import "fmt"

// TierKind maps to the tier_kind enum in Postgres.
type TierKind string

const (
	// TierKindMatrix marks the six doubling-target ladder tiers.
	TierKindMatrix TierKind = "matrix"
	// TierKindUnlock marks the flat-target tier that clears the lowest cap.
	TierKindUnlock TierKind = "unlock"
	// TierKindFee marks the two PMF fee tiers that clear the upper caps.
	TierKindFee TierKind = "fee"
)

var validTierKinds = []TierKind{
	TierKindMatrix,
	TierKindUnlock,
	TierKindFee,
}

// String implements fmt.Stringer.
func (k TierKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known TierKind.
func (k TierKind) IsValid() bool {
	for _, candidate := range validTierKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTierKind converts raw input into a TierKind.
func ParseTierKind(value string) (TierKind, error) {
	for _, candidate := range validTierKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier kind %q", value)
}
