package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
)

// Repository manages persistence for member tier ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	BatchInsert(ctx context.Context, rows []models.UserLevel) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.UserLevel, error)
	FindByMemberAndTier(ctx context.Context, memberCode string, tierID uuid.UUID) (*models.UserLevel, error)
	FindByMemberAndOrder(ctx context.Context, memberCode string, order int) (*models.UserLevel, error)
	ListByMember(ctx context.Context, memberCode string) ([]models.UserLevel, error)
	ListByMemberAndKind(ctx context.Context, memberCode string, kind enums.TierKind) ([]models.UserLevel, error)
	SumReceivedExcludingKinds(ctx context.Context, memberCode string, excluded []enums.TierKind) (decimal.Decimal, error)
	CountNotPaid(ctx context.Context, memberCode string) (int64, error)
	CreditConditional(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error)
	MarkPaid(ctx context.Context, id uuid.UUID, txnID string, mode enums.PaymentMethod) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.LedgerStatus, payEnabled bool) error
	BindUplineIfEmpty(ctx context.Context, memberCode string, tierID uuid.UUID, uplineCode string) (bool, error)
	RetargetTier(tx *gorm.DB, tier models.Tier, newTarget decimal.Decimal) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// BatchInsert creates the per-tier rows for a new member. Conflicts on the
// (member, tier) unique pair are ignored so the onboarding hook is retryable.
func (r *repository) BatchInsert(ctx context.Context, rows []models.UserLevel) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.UserLevel, error) {
	var row models.UserLevel
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByMemberAndTier(ctx context.Context, memberCode string, tierID uuid.UUID) (*models.UserLevel, error) {
	var row models.UserLevel
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Where("member_code = ? AND tier_id = ?", memberCode, tierID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByMemberAndOrder(ctx context.Context, memberCode string, order int) (*models.UserLevel, error) {
	var row models.UserLevel
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Joins("JOIN tiers ON tiers.id = user_levels.tier_id").
		Where("user_levels.member_code = ? AND tiers.tier_order = ?", memberCode, order).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByMember(ctx context.Context, memberCode string) ([]models.UserLevel, error) {
	var rows []models.UserLevel
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Joins("JOIN tiers ON tiers.id = user_levels.tier_id").
		Where("user_levels.member_code = ?", memberCode).
		Order("tiers.tier_order ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListByMemberAndKind(ctx context.Context, memberCode string, kind enums.TierKind) ([]models.UserLevel, error) {
	var rows []models.UserLevel
	err := r.db.WithContext(ctx).
		Preload("Tier").
		Joins("JOIN tiers ON tiers.id = user_levels.tier_id").
		Where("user_levels.member_code = ? AND tiers.kind = ?", memberCode, kind).
		Order("tiers.tier_order ASC").
		Find(&rows).Error
	return rows, err
}

// SumReceivedExcludingKinds totals a member's received credit, leaving out the
// named tier kinds. Cap enforcement excludes unlock and fee tiers.
func (r *repository) SumReceivedExcludingKinds(ctx context.Context, memberCode string, excluded []enums.TierKind) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	query := r.db.WithContext(ctx).
		Model(&models.UserLevel{}).
		Select("COALESCE(SUM(user_levels.received), 0)").
		Joins("JOIN tiers ON tiers.id = user_levels.tier_id").
		Where("user_levels.member_code = ?", memberCode)
	if len(excluded) > 0 {
		query = query.Where("tiers.kind NOT IN ?", excluded)
	}
	if err := query.Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) CountNotPaid(ctx context.Context, memberCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserLevel{}).
		Where("member_code = ? AND status <> ?", memberCode, enums.LedgerStatusPaid).
		Count(&count).Error
	return count, err
}

// CreditConditional applies an upline credit as a single guarded statement.
// The balance >= amount predicate makes concurrent credits into the same row
// safe without a read-modify-write cycle; the caller checks the returned
// applied flag and treats false as a skip.
func (r *repository) CreditConditional(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserLevel{}).
		Where("id = ? AND balance >= ?", id, amount).
		Updates(map[string]any{
			"received": gorm.Expr("received + ?", amount),
			"balance":  gorm.Expr("balance - ?", amount),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaid transitions a row to paid unless it already is. The status guard is
// the cascade's re-entrancy check.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, txnID string, mode enums.PaymentMethod) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.UserLevel{}).
		Where("id = ? AND status <> ?", id, enums.LedgerStatusPaid).
		Updates(map[string]any{
			"status":    enums.LedgerStatusPaid,
			"txn_id":    txnID,
			"paid_mode": mode,
			"paid_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Unlock(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.UserLevel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active":      true,
			"pay_enabled": true,
		}).Error
}

// SetStatus moves a row between the assignable statuses. Paid rows are out of
// reach here; paid is entered through MarkPaid only and never left.
func (r *repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.LedgerStatus, payEnabled bool) error {
	return r.db.WithContext(ctx).
		Model(&models.UserLevel{}).
		Where("id = ? AND status <> ?", id, enums.LedgerStatusPaid).
		Updates(map[string]any{
			"status":      status,
			"pay_enabled": payEnabled,
		}).Error
}

// BindUplineIfEmpty fills an unresolved upline link, first writer wins.
func (r *repository) BindUplineIfEmpty(ctx context.Context, memberCode string, tierID uuid.UUID, uplineCode string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UserLevel{}).
		Where("member_code = ? AND tier_id = ? AND upline_code IS NULL", memberCode, tierID).
		Update("upline_code", uplineCode)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RetargetTier rewrites every ledger row for a tier after its amount changed:
// all rows get the new target with a zeroed balance, then rows already paid
// are re-raised to the new target. Received is left untouched.
func (r *repository) RetargetTier(tx *gorm.DB, tier models.Tier, newTarget decimal.Decimal) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	result := tx.Model(&models.UserLevel{}).
		Where("tier_id = ?", tier.ID).
		Updates(map[string]any{
			"target":  newTarget,
			"balance": decimal.Zero,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if err := tx.Model(&models.UserLevel{}).
		Where("tier_id = ? AND status = ?", tier.ID, enums.LedgerStatusPaid).
		Update("balance", newTarget).Error; err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}
