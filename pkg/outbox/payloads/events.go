package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/pkg/enums"
)

// PaymentVerifiedEvent is emitted when a level payment settles and the ledger
// row flips to paid.
type PaymentVerifiedEvent struct {
	PaymentID   uuid.UUID           `json:"payment_id"`
	UserLevelID uuid.UUID           `json:"user_level_id"`
	MemberCode  string              `json:"member_code"`
	TierName    string              `json:"tier_name"`
	Amount      decimal.Decimal     `json:"amount"`
	Method      enums.PaymentMethod `json:"method"`
	VerifiedAt  time.Time           `json:"verified_at"`
}

// PaymentFailedEvent is emitted when a gateway or manual payment is declined.
type PaymentFailedEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	UserLevelID uuid.UUID `json:"user_level_id"`
	MemberCode  string    `json:"member_code"`
	Reason      string    `json:"reason,omitempty"`
}

// LedgerCreditedEvent reports a single upline credit applied by the cascade.
type LedgerCreditedEvent struct {
	PaymentID      uuid.UUID       `json:"payment_id"`
	FromMemberCode string          `json:"from_member_code"`
	UplineCode     string          `json:"upline_code"`
	UserLevelID    uuid.UUID       `json:"user_level_id"`
	TierName       string          `json:"tier_name"`
	Amount         decimal.Decimal `json:"amount"`
}

// CreditSkippedEvent reports a credit the cascade withheld, either because the
// receiving balance could not absorb it or a cap blocked the upline.
type CreditSkippedEvent struct {
	PaymentID      uuid.UUID       `json:"payment_id"`
	FromMemberCode string          `json:"from_member_code"`
	UplineCode     string          `json:"upline_code"`
	TierName       string          `json:"tier_name"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason"`
}

// LevelUnlockedEvent signals that the next tier opened for a member.
type LevelUnlockedEvent struct {
	UserLevelID uuid.UUID `json:"user_level_id"`
	MemberCode  string    `json:"member_code"`
	TierName    string    `json:"tier_name"`
	TierOrder   int       `json:"tier_order"`
}

// MemberEligibleEvent signals that a member completed the unlock tier and may
// now earn referral income.
type MemberEligibleEvent struct {
	MemberID   uuid.UUID `json:"member_id"`
	MemberCode string    `json:"member_code"`
	EligibleAt time.Time `json:"eligible_at"`
}

// TierAmountChangedEvent reports a catalog amount change and the number of
// ledgers re-targeted by the propagation pass.
type TierAmountChangedEvent struct {
	TierID         uuid.UUID       `json:"tier_id"`
	TierName       string          `json:"tier_name"`
	OldAmount      decimal.Decimal `json:"old_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
	LedgersUpdated int             `json:"ledgers_updated"`
}
