package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgpagination "github.com/growthloop/matrixpay-backend/pkg/pagination"
)

type ListParams struct {
	MemberCode string
	pkgpagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID             uuid.UUID           `json:"id"`
	UserLevelID    uuid.UUID           `json:"user_level_id"`
	MemberCode     string              `json:"member_code"`
	TierName       string              `json:"tier_name,omitempty"`
	Amount         decimal.Decimal     `json:"amount"`
	Status         enums.PaymentStatus `json:"status"`
	Method         enums.PaymentMethod `json:"method"`
	GatewayOrderID *string             `json:"gateway_order_id,omitempty"`
	ProofRef       *string             `json:"proof_ref,omitempty"`
	FailureReason  *string             `json:"failure_reason,omitempty"`
	VerifiedAt     *time.Time          `json:"verified_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

type listQuery struct {
	memberCode string
	limit      int
	cursor     *pkgpagination.Cursor
}

func toListItem(m models.LevelPayment) ListItem {
	item := ListItem{
		ID:             m.ID,
		UserLevelID:    m.UserLevelID,
		MemberCode:     m.MemberCode,
		Amount:         m.Amount,
		Status:         m.Status,
		Method:         m.Method,
		GatewayOrderID: m.GatewayOrderID,
		ProofRef:       m.ProofRef,
		FailureReason:  m.FailureReason,
		VerifiedAt:     m.VerifiedAt,
		CreatedAt:      m.CreatedAt,
	}
	if m.UserLevel != nil && m.UserLevel.Tier != nil {
		item.TierName = m.UserLevel.Tier.Name
	}
	return item
}
