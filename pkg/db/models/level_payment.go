package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/pkg/enums"
)

// LevelPayment records one payment attempt against a ledger entry. Amount is
// snapshotted from the tier at creation so later catalog edits do not move
// already-initiated payments. Verified and failed are terminal; at most one
// pending payment per ledger entry is enforced by the payments service, not by
// a database constraint.
type LevelPayment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserLevelID      uuid.UUID           `gorm:"column:user_level_id;type:uuid;not null;index"`
	UserLevel        *UserLevel          `gorm:"foreignKey:UserLevelID"`
	MemberCode       string              `gorm:"column:member_code;not null;index"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	GatewayOrderID   *string             `gorm:"column:gateway_order_id;index"`
	GatewayPaymentID *string             `gorm:"column:gateway_payment_id"`
	ProofRef         *string             `gorm:"column:proof_ref"`
	ProofPINHash     *string             `gorm:"column:proof_pin_hash"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	VerifiedAt       *time.Time          `gorm:"column:verified_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
