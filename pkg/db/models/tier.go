package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/pkg/enums"
)

// Tier is an immutable-order catalog entry in the compensation ladder.
// Amount may change through catalog admin; order and kind never do.
type Tier struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null;uniqueIndex"`
	Kind      enums.TierKind  `gorm:"column:kind;type:tier_kind;not null;default:'matrix'"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	TierOrder int             `gorm:"column:tier_order;not null;uniqueIndex"`
	Benefits  pq.StringArray  `gorm:"column:benefits;type:text[];default:ARRAY[]::text[]"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Target computes the crediting target a ledger entry for this tier carries:
// matrix tiers double per rung, unlock and fee tiers stay flat. The doubling
// runs in decimal space, so an out-of-range stored order cannot overflow.
func (t Tier) Target() decimal.Decimal {
	if t.Kind != enums.TierKindMatrix {
		return t.Amount
	}
	multiplier := decimal.NewFromInt(2).Pow(decimal.NewFromInt(int64(t.TierOrder)))
	return t.Amount.Mul(multiplier)
}
