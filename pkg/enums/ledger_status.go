package enums

import "fmt"

// LedgerStatus tracks the payment lifecycle of a member's tier ledger entry.
type LedgerStatus string

const (
	LedgerStatusNotPaid  LedgerStatus = "not_paid"
	LedgerStatusPending  LedgerStatus = "pending"
	LedgerStatusPaid     LedgerStatus = "paid"
	LedgerStatusRejected LedgerStatus = "rejected"
)

var validLedgerStatuses = []LedgerStatus{
	LedgerStatusNotPaid,
	LedgerStatusPending,
	LedgerStatusPaid,
	LedgerStatusRejected,
}

// String implements fmt.Stringer.
func (s LedgerStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known LedgerStatus.
func (s LedgerStatus) IsValid() bool {
	for _, candidate := range validLedgerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Payable reports whether a ledger entry in this status may accept a new payment.
func (s LedgerStatus) Payable() bool {
	return s == LedgerStatusNotPaid || s == LedgerStatusRejected
}

// ParseLedgerStatus converts raw input into a LedgerStatus.
func ParseLedgerStatus(value string) (LedgerStatus, error) {
	for _, candidate := range validLedgerStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger status %q", value)
}
