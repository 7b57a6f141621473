package enums

import "fmt"

// PaymentStatus tracks the lifecycle of a level payment record.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusVerified   PaymentStatus = "verified"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRestricted PaymentStatus = "restricted"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusVerified,
	PaymentStatusFailed,
	PaymentStatusRestricted,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// Terminal reports whether no further transition is allowed from this status.
func (p PaymentStatus) Terminal() bool {
	return p == PaymentStatusVerified || p == PaymentStatusFailed
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
