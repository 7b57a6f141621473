package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/internal/caps"
	"github.com/growthloop/matrixpay-backend/internal/ledger"
	"github.com/growthloop/matrixpay-backend/pkg/config"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/gateway"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
	"github.com/growthloop/matrixpay-backend/pkg/metrics"
	"github.com/growthloop/matrixpay-backend/pkg/outbox"
	"github.com/growthloop/matrixpay-backend/pkg/outbox/payloads"
	pkgpagination "github.com/growthloop/matrixpay-backend/pkg/pagination"
	"github.com/growthloop/matrixpay-backend/pkg/security"
)

// Service drives the payment lifecycle: initiation with its gate sequence,
// the crediting cascade on settlement, and the failure unwind.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*models.LevelPayment, error)
	OnPaymentVerified(ctx context.Context, paymentID uuid.UUID, gatewayPaymentID *string) error
	OnPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) error
	SetLedgerStatus(ctx context.Context, userLevelID uuid.UUID, status enums.LedgerStatus) error
	GetPayment(ctx context.Context, id uuid.UUID) (*models.LevelPayment, error)
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.LevelPayment, error)
	ListByMember(ctx context.Context, params ListParams) (*ListResult, error)
}

// InitiateInput starts a payment against one ledger entry. SourceID is the
// tokenized card for gateway payments; ProofRef and PIN belong to the manual
// path.
type InitiateInput struct {
	MemberCode string
	TierID     uuid.UUID
	Method     enums.PaymentMethod
	SourceID   string
	ProofRef   string
	PIN        string
}

type gatewayClient interface {
	CreatePayment(ctx context.Context, params gateway.PaymentCreateParams) (*sq.Payment, error)
	LocationID() string
	NewIdempotencyKey(prefix string) string
}

type eligibilityMarker interface {
	MarkEligibleTx(ctx context.Context, tx *gorm.DB, memberCode string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Repo        Repository
	Ledgers     ledger.Repository
	Caps        caps.Service
	Eligibility eligibilityMarker
	Gateway     gatewayClient
	TxRunner    txRunner
	Outbox      outboxEmitter
	Metrics     *metrics.EngineMetrics
	PINConfig   config.PINConfig
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	ledgers     ledger.Repository
	caps        caps.Service
	eligibility eligibilityMarker
	gateway     gatewayClient
	txRunner    txRunner
	outbox      outboxEmitter
	metrics     *metrics.EngineMetrics
	pinCfg      config.PINConfig
	logg        *logger.Logger
}

// NewService wires the payments service. Gateway may be nil when only manual
// payments are enabled.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Ledgers == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Caps == nil {
		return nil, fmt.Errorf("caps service required")
	}
	if params.Eligibility == nil {
		return nil, fmt.Errorf("eligibility marker required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Metrics == nil {
		params.Metrics = metrics.NewEngineMetrics(nil)
	}
	return &service{
		repo:        params.Repo,
		ledgers:     params.Ledgers,
		caps:        params.Caps,
		eligibility: params.Eligibility,
		gateway:     params.Gateway,
		txRunner:    params.TxRunner,
		outbox:      params.Outbox,
		metrics:     params.Metrics,
		pinCfg:      params.PINConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*models.LevelPayment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

func (s *service) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.LevelPayment, error) {
	payment, err := s.repo.FindByGatewayPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment by gateway id")
	}
	return payment, nil
}

func (s *service) ListByMember(ctx context.Context, params ListParams) (*ListResult, error) {
	code := strings.TrimSpace(params.MemberCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member code is required")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		memberCode: code,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.ListByMember(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}

	return &ListResult{
		Items:  items,
		Cursor: nextCursor,
	}, nil
}

// Initiate runs the gate sequence for a new payment: the ledger entry must be
// payable, open for payment, carry no pending attempt, and the resolved
// upline must be allowed to receive the credit. An unresolved upline is
// allowed through with a warning so the pool does not block members from
// advancing.
func (s *service) Initiate(ctx context.Context, input InitiateInput) (*models.LevelPayment, error) {
	if err := validateInitiate(input); err != nil {
		return nil, err
	}

	row, err := s.ledgers.FindByMemberAndTier(ctx, input.MemberCode, input.TierID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no ledger entry for member and tier")
	}
	if row.Tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeSetupError, "ledger entry missing tier")
	}
	if !row.Status.Payable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("ledger entry is %s and cannot accept a payment", row.Status))
	}
	if !row.Active || !row.PayEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tier is not open for payment")
	}

	pending, err := s.repo.FindPendingByUserLevel(ctx, row.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending payments")
	}
	if pending != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a payment for this tier is already pending")
	}

	if err := s.checkUplineCaps(ctx, row); err != nil {
		return nil, err
	}

	payment := &models.LevelPayment{
		ID:          uuid.New(),
		UserLevelID: row.ID,
		MemberCode:  input.MemberCode,
		Amount:      row.Tier.Amount,
		Status:      enums.PaymentStatusPending,
		Method:      input.Method,
	}

	switch input.Method {
	case enums.PaymentMethodGateway:
		if err := s.chargeGateway(ctx, payment, row, input.SourceID); err != nil {
			return nil, err
		}
	case enums.PaymentMethodManual:
		if err := s.attachManualProof(ctx, payment, input); err != nil {
			return nil, err
		}
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return fmt.Errorf("persist payment: %w", err)
		}
		if input.Method == enums.PaymentMethodManual {
			if err := s.ledgers.WithTx(tx).SetStatus(ctx, row.ID, enums.LedgerStatusPending, false); err != nil {
				return fmt.Errorf("move ledger entry to pending: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initiate payment")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id":  payment.ID.String(),
		"member_code": payment.MemberCode,
		"tier":        row.Tier.Name,
		"method":      payment.Method.String(),
		"amount":      payment.Amount.String(),
	})
	s.logg.Info(logCtx, "payment initiated")
	return payment, nil
}

// checkUplineCaps enforces the receiving side of the gate sequence against
// the upline stored on the ledger entry at onboarding.
func (s *service) checkUplineCaps(ctx context.Context, row *models.UserLevel) error {
	if row.UplineCode == nil || strings.TrimSpace(*row.UplineCode) == "" {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"member_code": row.MemberCode,
			"tier":        row.Tier.Name,
		})
		s.logg.Warn(logCtx, "no upline resolved for tier, payment proceeds without cap check")
		return nil
	}
	decision, err := s.caps.CanCredit(ctx, *row.UplineCode, row.Tier.Amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "evaluate upline caps")
	}
	if !decision.Allowed {
		s.metrics.IncCapBlock(decision.Threshold)
		return pkgerrors.New(pkgerrors.CodeBlockedByCap, decision.Reason)
	}
	return nil
}

func (s *service) chargeGateway(ctx context.Context, payment *models.LevelPayment, row *models.UserLevel, sourceID string) error {
	if s.gateway == nil {
		return pkgerrors.New(pkgerrors.CodeSetupError, "gateway payments are not configured")
	}
	created, err := s.gateway.CreatePayment(ctx, gateway.PaymentCreateParams{
		AmountCents:    payment.Amount.Shift(2).IntPart(),
		LocationID:     s.gateway.LocationID(),
		SourceID:       sourceID,
		IdempotencyKey: s.gateway.NewIdempotencyKey("mx"),
		Note:           fmt.Sprintf("%s level payment", row.Tier.Name),
		ReferenceID:    payment.ID.String(),
	})
	if err != nil {
		return err
	}
	if created != nil {
		payment.GatewayPaymentID = created.GetID()
		payment.GatewayOrderID = created.GetOrderID()
	}
	return nil
}

func (s *service) attachManualProof(ctx context.Context, payment *models.LevelPayment, input InitiateInput) error {
	proof := strings.TrimSpace(input.ProofRef)
	payment.ProofRef = &proof
	hash, err := security.HashPIN(input.PIN, s.pinCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "hash proof pin")
	}
	payment.ProofPINHash = &hash
	return nil
}

// OnPaymentVerified settles a payment and runs the crediting cascade in a
// single transaction: the payer's ledger entry flips to paid, the upline's
// matching entry absorbs the credit when its balance allows, the next matrix
// rung unlocks, and a fully paid-up member becomes eligible. Replays are
// no-ops through the status guards.
func (s *service) OnPaymentVerified(ctx context.Context, paymentID uuid.UUID, gatewayPaymentID *string) error {
	started := time.Now()
	var tierName string

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		paymentsTx := s.repo.WithTx(tx)
		ledgersTx := s.ledgers.WithTx(tx)

		payment, err := paymentsTx.FindByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		if payment.Status == enums.PaymentStatusVerified {
			return nil
		}
		if payment.Status == enums.PaymentStatusFailed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already failed")
		}
		row, err := ledgersTx.FindByID(ctx, payment.UserLevelID)
		if err != nil {
			return fmt.Errorf("load ledger entry: %w", err)
		}
		if row == nil || row.Tier == nil {
			return pkgerrors.New(pkgerrors.CodeSetupError, "payment references a missing ledger entry")
		}
		tierName = row.Tier.Name

		now := time.Now()
		applied, err := paymentsTx.MarkVerified(ctx, payment.ID, gatewayPaymentID, now)
		if err != nil {
			return fmt.Errorf("mark payment verified: %w", err)
		}
		if !applied {
			return nil
		}

		txnID := payment.ID.String()
		if gatewayPaymentID != nil {
			txnID = *gatewayPaymentID
		} else if payment.GatewayPaymentID != nil {
			txnID = *payment.GatewayPaymentID
		}
		paid, err := ledgersTx.MarkPaid(ctx, row.ID, txnID, payment.Method)
		if err != nil {
			return fmt.Errorf("mark ledger entry paid: %w", err)
		}
		if !paid {
			// A competing payment settled this entry first. The money is
			// real but has no ledger home, so the record is held for
			// out-of-band resolution instead of staying verified.
			if _, err := paymentsTx.MarkRestricted(ctx, payment.ID, "ledger entry already settled"); err != nil {
				return fmt.Errorf("mark payment restricted: %w", err)
			}
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_id": payment.ID.String(),
				"tier":       row.Tier.Name,
			})
			s.logg.Warn(logCtx, "ledger entry already paid, payment restricted")
			return nil
		}

		if err := s.creditUpline(ctx, tx, payment, row); err != nil {
			return err
		}
		if err := s.unlockNextRung(ctx, tx, row); err != nil {
			return err
		}

		remaining, err := ledgersTx.CountNotPaid(ctx, row.MemberCode)
		if err != nil {
			return fmt.Errorf("count unpaid ledger entries: %w", err)
		}
		if remaining == 0 {
			if err := s.eligibility.MarkEligibleTx(ctx, tx, row.MemberCode); err != nil {
				return err
			}
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentVerified,
			AggregateType: enums.AggregateLevelPayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentVerifiedEvent{
				PaymentID:   payment.ID,
				UserLevelID: row.ID,
				MemberCode:  row.MemberCode,
				TierName:    row.Tier.Name,
				Amount:      payment.Amount,
				Method:      payment.Method,
				VerifiedAt:  now,
			},
		})
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveCascade(tierName, time.Since(started))
	return nil
}

// creditUpline applies the payer's amount to the upline's same-tier entry.
// The credit is conditional on the receiving balance; a shortfall downgrades
// to a skip event rather than failing the settlement. Caps gate initiation
// only, so an upline that crossed a threshold after the payer initiated
// still receives this credit.
func (s *service) creditUpline(ctx context.Context, tx *gorm.DB, payment *models.LevelPayment, row *models.UserLevel) error {
	if row.UplineCode == nil || strings.TrimSpace(*row.UplineCode) == "" {
		return nil
	}
	uplineCode := *row.UplineCode
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"payment_id":  payment.ID.String(),
		"member_code": row.MemberCode,
		"upline_code": uplineCode,
		"tier":        row.Tier.Name,
	})

	uplineRow, err := s.ledgers.WithTx(tx).FindByMemberAndTier(ctx, uplineCode, row.TierID)
	if err != nil {
		return fmt.Errorf("load upline ledger entry: %w", err)
	}
	if uplineRow == nil {
		return s.skipCredit(ctx, tx, payment, row, uplineCode, "upline has no ledger entry for tier", logCtx)
	}

	credited, err := s.ledgers.WithTx(tx).CreditConditional(ctx, uplineRow.ID, payment.Amount)
	if err != nil {
		return fmt.Errorf("credit upline ledger entry: %w", err)
	}
	if !credited {
		return s.skipCredit(ctx, tx, payment, row, uplineCode, "upline balance cannot absorb credit", logCtx)
	}

	s.metrics.IncCreditApplied(row.Tier.Name)
	s.logg.Info(logCtx, "upline credited")
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLedgerCredited,
		AggregateType: enums.AggregateUserLevel,
		AggregateID:   uplineRow.ID,
		Version:       1,
		Data: payloads.LedgerCreditedEvent{
			PaymentID:      payment.ID,
			FromMemberCode: row.MemberCode,
			UplineCode:     uplineCode,
			UserLevelID:    uplineRow.ID,
			TierName:       row.Tier.Name,
			Amount:         payment.Amount,
		},
	})
}

func (s *service) skipCredit(ctx context.Context, tx *gorm.DB, payment *models.LevelPayment, row *models.UserLevel, uplineCode, reason string, logCtx context.Context) error {
	s.metrics.IncCreditSkipped(row.Tier.Name)
	s.logg.Warn(s.logg.WithField(logCtx, "reason", reason), "upline credit skipped")
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventCreditSkipped,
		AggregateType: enums.AggregateLevelPayment,
		AggregateID:   payment.ID,
		Version:       1,
		Data: payloads.CreditSkippedEvent{
			PaymentID:      payment.ID,
			FromMemberCode: row.MemberCode,
			UplineCode:     uplineCode,
			TierName:       row.Tier.Name,
			Amount:         payment.Amount,
			Reason:         reason,
		},
	})
}

// unlockNextRung opens the next matrix tier after a matrix payment. The last
// rung has nothing above it, and the unlock and fee tiers are open from
// onboarding.
func (s *service) unlockNextRung(ctx context.Context, tx *gorm.DB, row *models.UserLevel) error {
	if row.Tier.Kind != enums.TierKindMatrix {
		return nil
	}
	next, err := s.ledgers.WithTx(tx).FindByMemberAndOrder(ctx, row.MemberCode, row.Tier.TierOrder+1)
	if err != nil {
		return fmt.Errorf("load next ledger entry: %w", err)
	}
	if next == nil || next.Tier == nil || next.Tier.Kind != enums.TierKindMatrix {
		return nil
	}
	if err := s.ledgers.WithTx(tx).Unlock(ctx, next.ID); err != nil {
		return fmt.Errorf("unlock next tier: %w", err)
	}
	return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventLevelUnlocked,
		AggregateType: enums.AggregateUserLevel,
		AggregateID:   next.ID,
		Version:       1,
		Data: payloads.LevelUnlockedEvent{
			UserLevelID: next.ID,
			MemberCode:  next.MemberCode,
			TierName:    next.Tier.Name,
			TierOrder:   next.Tier.TierOrder,
		},
	})
}

// OnPaymentFailed unwinds a declined payment: the record goes terminal with
// the decline reason and the ledger entry reopens so the member can retry.
func (s *service) OnPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		paymentsTx := s.repo.WithTx(tx)

		payment, err := paymentsTx.FindByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		if payment.Status.Terminal() {
			return nil
		}

		applied, err := paymentsTx.MarkFailed(ctx, payment.ID, reason)
		if err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		if !applied {
			return nil
		}
		if err := s.ledgers.WithTx(tx).SetStatus(ctx, payment.UserLevelID, enums.LedgerStatusRejected, true); err != nil {
			return fmt.Errorf("reject ledger entry: %w", err)
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id":  payment.ID.String(),
			"member_code": payment.MemberCode,
			"reason":      reason,
		})
		s.logg.Warn(logCtx, "payment failed")

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregateLevelPayment,
			AggregateID:   payment.ID,
			Version:       1,
			Data: payloads.PaymentFailedEvent{
				PaymentID:   payment.ID,
				UserLevelID: payment.UserLevelID,
				MemberCode:  payment.MemberCode,
				Reason:      reason,
			},
		})
	})
}

// SetLedgerStatus is the admin override for stuck manual flows. Only pending
// and rejected are assignable; paid entries are immutable and paid itself is
// only reachable through the cascade.
func (s *service) SetLedgerStatus(ctx context.Context, userLevelID uuid.UUID, status enums.LedgerStatus) error {
	if status != enums.LedgerStatusPending && status != enums.LedgerStatusRejected {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("status %s cannot be assigned directly", status))
	}
	row, err := s.ledgers.FindByID(ctx, userLevelID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger entry")
	}
	if row == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "ledger entry not found")
	}
	if row.Status == enums.LedgerStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "paid ledger entries are immutable")
	}
	payEnabled := status == enums.LedgerStatusRejected
	if err := s.ledgers.SetStatus(ctx, userLevelID, status, payEnabled); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ledger status")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_level_id": userLevelID.String(),
		"status":        status.String(),
	})
	s.logg.Info(logCtx, "ledger status overridden")
	return nil
}

func validateInitiate(input InitiateInput) error {
	if strings.TrimSpace(input.MemberCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "member code is required")
	}
	if input.TierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tier id is required")
	}
	switch input.Method {
	case enums.PaymentMethodGateway:
		if strings.TrimSpace(input.SourceID) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "source id is required for gateway payments")
		}
	case enums.PaymentMethodManual:
		if strings.TrimSpace(input.ProofRef) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "proof reference is required for manual payments")
		}
		if strings.TrimSpace(input.PIN) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "proof pin is required for manual payments")
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	return nil
}
