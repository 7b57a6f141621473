package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateLevelPayment OutboxAggregateType = "level_payment"
	AggregateUserLevel    OutboxAggregateType = "user_level"
	AggregateMember       OutboxAggregateType = "member"
	AggregateTier         OutboxAggregateType = "tier"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateLevelPayment,
	AggregateUserLevel,
	AggregateMember,
	AggregateTier,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPaymentVerified  OutboxEventType = "payment_verified"
	EventPaymentFailed    OutboxEventType = "payment_failed"
	EventLedgerCredited   OutboxEventType = "ledger_credited"
	EventCreditSkipped    OutboxEventType = "credit_skipped"
	EventLevelUnlocked    OutboxEventType = "level_unlocked"
	EventMemberEligible   OutboxEventType = "member_eligible"
	EventTierAmountChange OutboxEventType = "tier_amount_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPaymentVerified,
	EventPaymentFailed,
	EventLedgerCredited,
	EventCreditSkipped,
	EventLevelUnlocked,
	EventMemberEligible,
	EventTierAmountChange,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
