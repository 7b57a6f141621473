package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/pkg/enums"
)

// UserLevel is a member's per-tier ledger entry. One row per (member, tier),
// created in bulk when the member is onboarded. Invariant at rest:
// received + balance == target. Balance and received only move through the
// crediting cascade or a catalog amount change.
//
// UplineCode references a member by external identifier, not by foreign key:
// the unlock-tier link may point at a member created later.
type UserLevel struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MemberCode string               `gorm:"column:member_code;not null;uniqueIndex:ux_user_levels_member_tier"`
	TierID     uuid.UUID            `gorm:"column:tier_id;type:uuid;not null;uniqueIndex:ux_user_levels_member_tier"`
	Tier       *Tier                `gorm:"foreignKey:TierID"`
	Status     enums.LedgerStatus   `gorm:"column:status;type:ledger_status;not null;default:'not_paid'"`
	Active     bool                 `gorm:"column:active;not null;default:false"`
	PayEnabled bool                 `gorm:"column:pay_enabled;not null;default:false"`
	Target     decimal.Decimal      `gorm:"column:target;type:numeric(12,2);not null"`
	Balance    decimal.Decimal      `gorm:"column:balance;type:numeric(12,2);not null"`
	Received   decimal.Decimal      `gorm:"column:received;type:numeric(12,2);not null;default:0"`
	UplineCode *string              `gorm:"column:upline_code;index"`
	TxnID      *string              `gorm:"column:txn_id"`
	PaidMode   *enums.PaymentMethod `gorm:"column:paid_mode;type:payment_method"`
	PaidAt     *time.Time           `gorm:"column:paid_at"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
