package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
)

// Repository persists level payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.LevelPayment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LevelPayment, error)
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.LevelPayment, error)
	FindPendingByUserLevel(ctx context.Context, userLevelID uuid.UUID) (*models.LevelPayment, error)
	ListByMember(ctx context.Context, opts listQuery) ([]models.LevelPayment, error)
	MarkVerified(ctx context.Context, id uuid.UUID, gatewayPaymentID *string, verifiedAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkRestricted(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.LevelPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LevelPayment, error) {
	var payment models.LevelPayment
	err := r.db.WithContext(ctx).
		Preload("UserLevel").
		Preload("UserLevel.Tier").
		First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.LevelPayment, error) {
	var payment models.LevelPayment
	err := r.db.WithContext(ctx).
		Preload("UserLevel").
		Preload("UserLevel.Tier").
		First(&payment, "gateway_payment_id = ?", gatewayPaymentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindPendingByUserLevel(ctx context.Context, userLevelID uuid.UUID) (*models.LevelPayment, error) {
	var payment models.LevelPayment
	err := r.db.WithContext(ctx).
		Where("user_level_id = ? AND status = ?", userLevelID, enums.PaymentStatusPending).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByMember returns a member's payments using cursor pagination.
func (r *repository) ListByMember(ctx context.Context, opts listQuery) ([]models.LevelPayment, error) {
	query := r.db.WithContext(ctx).
		Preload("UserLevel").
		Preload("UserLevel.Tier").
		Where("member_code = ?", opts.memberCode)

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.LevelPayment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkVerified flips a pending payment to verified. The status guard in the
// WHERE clause makes replayed webhooks no-ops; the bool reports whether this
// call performed the transition.
func (r *repository) MarkVerified(ctx context.Context, id uuid.UUID, gatewayPaymentID *string, verifiedAt time.Time) (bool, error) {
	updates := map[string]any{
		"status":      enums.PaymentStatusVerified,
		"verified_at": verifiedAt,
	}
	if gatewayPaymentID != nil {
		updates["gateway_payment_id"] = *gatewayPaymentID
	}
	result := r.db.WithContext(ctx).
		Model(&models.LevelPayment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LevelPayment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkRestricted parks a settled payment that no ledger entry could absorb.
// Resolution happens outside the cascade, typically as a refund.
func (r *repository) MarkRestricted(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LevelPayment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusVerified).
		Updates(map[string]any{
			"status":         enums.PaymentStatusRestricted,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
