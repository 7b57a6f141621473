package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
	"github.com/growthloop/matrixpay-backend/pkg/outbox"
	"github.com/growthloop/matrixpay-backend/pkg/outbox/payloads"
)

// maxTierOrder bounds admin-created rungs well above any real catalog while
// keeping the per-rung doubling of matrix targets inside sane magnitudes.
const maxTierOrder = 30

// Service owns the tier catalog and the amount-change propagation pass.
type Service interface {
	ListTiers(ctx context.Context) ([]models.Tier, error)
	GetTier(ctx context.Context, name string) (*models.Tier, error)
	UpsertTier(ctx context.Context, input UpsertTierInput) (*models.Tier, error)
}

// Retargeter rewrites ledger rows for a tier after its amount changes.
type Retargeter interface {
	RetargetTier(tx *gorm.DB, tier models.Tier, newTarget decimal.Decimal) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// UpsertTierInput carries the catalog admin payload.
type UpsertTierInput struct {
	Name     string
	Kind     enums.TierKind
	Amount   decimal.Decimal
	Order    int
	Benefits []string
}

type ServiceParams struct {
	Repo       Repository
	Retargeter Retargeter
	TxRunner   txRunner
	Outbox     outboxEmitter
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	retargeter Retargeter
	txRunner   txRunner
	outbox     outboxEmitter
	logg       *logger.Logger
}

// NewService wires the catalog service with its dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Retargeter == nil {
		return nil, fmt.Errorf("ledger retargeter required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       params.Repo,
		retargeter: params.Retargeter,
		txRunner:   params.TxRunner,
		outbox:     params.Outbox,
		logg:       params.Logger,
	}, nil
}

func (s *service) ListTiers(ctx context.Context) ([]models.Tier, error) {
	return s.repo.List(ctx)
}

func (s *service) GetTier(ctx context.Context, name string) (*models.Tier, error) {
	tier, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tier not found")
	}
	return tier, nil
}

// UpsertTier creates a catalog entry or, for an existing one, updates its
// amount. An amount change retargets every ledger row for that tier inside
// the same transaction so a half-updated catalog is never observable.
func (s *service) UpsertTier(ctx context.Context, input UpsertTierInput) (*models.Tier, error) {
	if err := validateUpsert(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByName(ctx, strings.TrimSpace(input.Name))
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return s.createTier(ctx, input)
	}
	return s.updateTier(ctx, existing, input)
}

func (s *service) createTier(ctx context.Context, input UpsertTierInput) (*models.Tier, error) {
	conflict, err := s.repo.FindByOrder(ctx, input.Order)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("tier order %d already taken by %q", input.Order, conflict.Name))
	}

	tier := &models.Tier{
		Name:      strings.TrimSpace(input.Name),
		Kind:      input.Kind,
		Amount:    input.Amount,
		TierOrder: input.Order,
		Benefits:  pq.StringArray(input.Benefits),
	}
	if err := s.repo.Create(ctx, tier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tier")
	}
	return tier, nil
}

func (s *service) updateTier(ctx context.Context, existing *models.Tier, input UpsertTierInput) (*models.Tier, error) {
	// Order and kind are fixed once a tier exists; ledgers key their targets
	// off them.
	if input.Order != existing.TierOrder {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier order cannot change")
	}
	if input.Kind != existing.Kind {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier kind cannot change")
	}

	if len(input.Benefits) > 0 {
		existing.Benefits = pq.StringArray(input.Benefits)
	}

	if existing.Amount.Equal(input.Amount) {
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tier")
		}
		return existing, nil
	}

	oldAmount := existing.Amount
	existing.Amount = input.Amount
	newTarget := existing.Target()

	var updated int64
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, existing); err != nil {
			return err
		}
		count, err := s.retargeter.RetargetTier(tx, *existing, newTarget)
		if err != nil {
			return err
		}
		updated = count

		if s.outbox != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventTierAmountChange,
				AggregateType: enums.AggregateTier,
				AggregateID:   existing.ID,
				Version:       1,
				Data: payloads.TierAmountChangedEvent{
					TierID:         existing.ID,
					TierName:       existing.Name,
					OldAmount:      oldAmount,
					NewAmount:      existing.Amount,
					LedgersUpdated: int(count),
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "propagate tier amount")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"tier":            existing.Name,
		"old_amount":      oldAmount.String(),
		"new_amount":      existing.Amount.String(),
		"ledgers_updated": updated,
	})
	s.logg.Info(logCtx, "tier amount propagated")
	return existing, nil
}

func validateUpsert(input UpsertTierInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "tier name is required")
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tier kind %q", input.Kind))
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "tier amount must be positive")
	}
	if input.Order < 1 || input.Order > maxTierOrder {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("tier order must be between 1 and %d", maxTierOrder))
	}
	return nil
}
