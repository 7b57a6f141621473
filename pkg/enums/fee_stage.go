package enums

import "fmt"

// FeeStage is a member's progress through the two-stage PMF unlock fee.
type FeeStage string

const (
	FeeStageNotPaid     FeeStage = "not_paid"
	FeeStagePartOnePaid FeeStage = "part_one_paid"
	FeeStagePaid        FeeStage = "paid"
)

var validFeeStages = []FeeStage{
	FeeStageNotPaid,
	FeeStagePartOnePaid,
	FeeStagePaid,
}

// String implements fmt.Stringer.
func (f FeeStage) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FeeStage.
func (f FeeStage) IsValid() bool {
	for _, candidate := range validFeeStages {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFeeStage converts raw input into a FeeStage.
func ParseFeeStage(value string) (FeeStage, error) {
	for _, candidate := range validFeeStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fee stage %q", value)
}
