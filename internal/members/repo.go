package members

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
)

// Repository manages persistence for member mirror rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, member *models.Member) error
	FindByCode(ctx context.Context, code string) (*models.Member, error)
	ListByCodePrefix(ctx context.Context, prefix string) ([]models.Member, error)
	MarkReferEligible(ctx context.Context, code string, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a members repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert mirrors the externally owned profile. Conflicts on member_code update
// the linkage fields so a replayed onboarding hook converges.
func (r *repository) Upsert(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "sponsor_code", "placement_code", "updated_at"}),
		}).
		Create(member).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).Where("member_code = ?", code).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ListByCodePrefix returns the fallback pool in stable member_code order.
func (r *repository) ListByCodePrefix(ctx context.Context, prefix string) ([]models.Member, error) {
	var rows []models.Member
	err := r.db.WithContext(ctx).
		Where("member_code LIKE ?", prefix+"%").
		Order("member_code ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) MarkReferEligible(ctx context.Context, code string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("member_code = ? AND refer_eligible = ?", code, false).
		Updates(map[string]any{
			"refer_eligible": true,
			"eligible_at":    at,
		}).Error
}
