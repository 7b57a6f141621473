package members

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/internal/ledger"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
	"github.com/growthloop/matrixpay-backend/pkg/outbox"
	"github.com/growthloop/matrixpay-backend/pkg/outbox/payloads"
)

// Service owns the member lifecycle hooks the engine exposes to the external
// registration system.
type Service interface {
	OnMemberCreated(ctx context.Context, input OnMemberCreatedInput) error
	MarkEligibleTx(ctx context.Context, tx *gorm.DB, memberCode string) error
	GetMember(ctx context.Context, code string) (*models.Member, error)
}

// Resolver is the upline resolution collaborator.
type Resolver interface {
	ResolveForTier(ctx context.Context, member *models.Member, tier models.Tier) (*string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type tierLister interface {
	List(ctx context.Context) ([]models.Tier, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OnMemberCreatedInput mirrors the externally owned member at onboarding time.
type OnMemberCreatedInput struct {
	MemberCode    string
	FullName      string
	SponsorCode   *string
	PlacementCode *string
}

type ServiceParams struct {
	Repo     Repository
	Ledgers  ledger.Repository
	Catalog  tierLister
	Resolver Resolver
	TxRunner txRunner
	Outbox   outboxEmitter
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	ledgers  ledger.Repository
	catalog  tierLister
	resolver Resolver
	txRunner txRunner
	outbox   outboxEmitter
	logg     *logger.Logger
}

// NewService wires the members service with its dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("members repository required")
	}
	if params.Ledgers == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("upline resolver required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		ledgers:  params.Ledgers,
		catalog:  params.Catalog,
		resolver: params.Resolver,
		txRunner: params.TxRunner,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

func (s *service) GetMember(ctx context.Context, code string) (*models.Member, error) {
	member, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	return member, nil
}

// OnMemberCreated populates the full ledger ladder for a new member in one
// transaction: one row per catalog tier, uplines resolved per tier, and the
// first-come reverse binding of the sponsor's unlock tier. Resolution problems
// degrade to warnings; the hook itself only fails on storage errors. Safe to
// retry: the (member, tier) unique pair makes the batch insert idempotent.
func (s *service) OnMemberCreated(ctx context.Context, input OnMemberCreatedInput) error {
	code := strings.TrimSpace(input.MemberCode)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "member code is required")
	}

	tiers, err := s.catalog.List(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tier catalog")
	}
	if len(tiers) == 0 {
		return pkgerrors.New(pkgerrors.CodeSetupError, "tier catalog is empty")
	}

	member := &models.Member{
		MemberCode:    code,
		FullName:      strings.TrimSpace(input.FullName),
		SponsorCode:   input.SponsorCode,
		PlacementCode: input.PlacementCode,
	}

	var warnings error
	rows := make([]models.UserLevel, 0, len(tiers))
	for _, tier := range tiers {
		uplineCode, resolveErr := s.resolver.ResolveForTier(ctx, member, tier)
		if resolveErr != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("tier %s: %w", tier.Name, resolveErr))
		}
		target := tier.Target()
		rows = append(rows, models.UserLevel{
			MemberCode: code,
			TierID:     tier.ID,
			Status:     enums.LedgerStatusNotPaid,
			Active:     startsActive(tier),
			PayEnabled: startsActive(tier),
			Target:     target,
			Balance:    target,
			UplineCode: uplineCode,
		})
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, member); err != nil {
			return fmt.Errorf("upsert member: %w", err)
		}
		if err := s.ledgers.WithTx(tx).BatchInsert(ctx, rows); err != nil {
			return fmt.Errorf("insert ledger rows: %w", err)
		}
		if err := s.bindSponsorUnlock(ctx, tx, member, tiers); err != nil {
			warnings = multierr.Append(warnings, err)
		}
		return nil
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "onboard member")
	}

	if warnings != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"member_code": code,
			"warnings":    warnings.Error(),
		})
		s.logg.Warn(logCtx, "member onboarded with unresolved upline links")
	}
	return nil
}

// bindSponsorUnlock performs the first-come reverse binding: when the new
// member becomes the sponsor's unlock-tier recipient and that link is still
// empty, fill it with the new member's code.
func (s *service) bindSponsorUnlock(ctx context.Context, tx *gorm.DB, member *models.Member, tiers []models.Tier) error {
	if member.SponsorCode == nil || strings.TrimSpace(*member.SponsorCode) == "" {
		return nil
	}
	var unlockTier *models.Tier
	for i := range tiers {
		if tiers[i].Kind == enums.TierKindUnlock {
			unlockTier = &tiers[i]
			break
		}
	}
	if unlockTier == nil {
		return nil
	}
	bound, err := s.ledgers.WithTx(tx).BindUplineIfEmpty(ctx, *member.SponsorCode, unlockTier.ID, member.MemberCode)
	if err != nil {
		return fmt.Errorf("bind sponsor unlock link: %w", err)
	}
	if bound {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"member_code":  member.MemberCode,
			"sponsor_code": *member.SponsorCode,
		})
		s.logg.Info(logCtx, "sponsor unlock tier bound to new member")
	}
	return nil
}

// MarkEligibleTx flips the refer/withdraw flag inside the caller's
// transaction. The cascade calls it when a member's last ledger row pays out.
func (s *service) MarkEligibleTx(ctx context.Context, tx *gorm.DB, memberCode string) error {
	now := time.Now()
	if err := s.repo.WithTx(tx).MarkReferEligible(ctx, memberCode, now); err != nil {
		return fmt.Errorf("mark member eligible: %w", err)
	}
	if s.outbox != nil {
		member, err := s.repo.WithTx(tx).FindByCode(ctx, memberCode)
		if err != nil {
			return fmt.Errorf("load member for eligibility event: %w", err)
		}
		if member != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventMemberEligible,
				AggregateType: enums.AggregateMember,
				AggregateID:   member.ID,
				Version:       1,
				Data: payloads.MemberEligibleEvent{
					MemberID:   member.ID,
					MemberCode: memberCode,
					EligibleAt: now,
				},
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return fmt.Errorf("emit eligibility event: %w", err)
			}
		}
	}
	return nil
}

// startsActive reports whether a tier's ledger row is payable immediately at
// onboarding. The first matrix rung, the unlock tier and the fee tiers open
// right away; matrix rungs 2..6 unlock as the previous rung pays out.
func startsActive(tier models.Tier) bool {
	if tier.Kind == enums.TierKindMatrix {
		return tier.TierOrder == 1
	}
	return true
}
