package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
)

// Repository manages persistence for the tier catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tier *models.Tier) error
	Update(ctx context.Context, tier *models.Tier) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tier, error)
	FindByName(ctx context.Context, name string) (*models.Tier, error)
	FindByOrder(ctx context.Context, order int) (*models.Tier, error)
	List(ctx context.Context) ([]models.Tier, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, tier *models.Tier) error {
	return r.db.WithContext(ctx).Create(tier).Error
}

func (r *repository) Update(ctx context.Context, tier *models.Tier) error {
	return r.db.WithContext(ctx).Save(tier).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tier, error) {
	var tier models.Tier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repository) FindByName(ctx context.Context, name string) (*models.Tier, error) {
	var tier models.Tier
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repository) FindByOrder(ctx context.Context, order int) (*models.Tier, error) {
	var tier models.Tier
	if err := r.db.WithContext(ctx).Where("tier_order = ?", order).First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repository) List(ctx context.Context) ([]models.Tier, error) {
	var tiers []models.Tier
	if err := r.db.WithContext(ctx).Order("tier_order ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}
