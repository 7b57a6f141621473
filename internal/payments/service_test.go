package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/internal/caps"
	"github.com/growthloop/matrixpay-backend/internal/ledger"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/gateway"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
	"github.com/growthloop/matrixpay-backend/pkg/outbox"
)

type stubPaymentsRepo struct {
	created    *models.LevelPayment
	byID       map[uuid.UUID]*models.LevelPayment
	pending    *models.LevelPayment
	verified   []uuid.UUID
	failed     []uuid.UUID
	restricted []uuid.UUID
	markResult bool
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.LevelPayment) error {
	s.created = payment
	return nil
}
func (s *stubPaymentsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.LevelPayment, error) {
	return s.byID[id], nil
}
func (s *stubPaymentsRepo) FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.LevelPayment, error) {
	return nil, nil
}
func (s *stubPaymentsRepo) FindPendingByUserLevel(ctx context.Context, userLevelID uuid.UUID) (*models.LevelPayment, error) {
	return s.pending, nil
}
func (s *stubPaymentsRepo) ListByMember(ctx context.Context, opts listQuery) ([]models.LevelPayment, error) {
	return nil, nil
}
func (s *stubPaymentsRepo) MarkVerified(ctx context.Context, id uuid.UUID, gatewayPaymentID *string, verifiedAt time.Time) (bool, error) {
	s.verified = append(s.verified, id)
	return s.markResult, nil
}
func (s *stubPaymentsRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	s.failed = append(s.failed, id)
	return s.markResult, nil
}
func (s *stubPaymentsRepo) MarkRestricted(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	s.restricted = append(s.restricted, id)
	return true, nil
}

type stubLedgers struct {
	byID           map[uuid.UUID]*models.UserLevel
	byMemberTier   map[string]*models.UserLevel
	byMemberOrder  map[string]*models.UserLevel
	notPaidCount   int64
	creditResult   bool
	markPaidResult bool
	markPaid       []uuid.UUID
	credits        []uuid.UUID
	unlocks        []uuid.UUID
	statusCalls    []struct {
		ID         uuid.UUID
		Status     enums.LedgerStatus
		PayEnabled bool
	}
}

func memberTierKey(memberCode string, tierID uuid.UUID) string {
	return memberCode + "/" + tierID.String()
}

func memberOrderKey(memberCode string, order int) string {
	return memberCode + "/" + string(rune('0'+order))
}

func (s *stubLedgers) WithTx(tx *gorm.DB) ledger.Repository { return s }
func (s *stubLedgers) BatchInsert(ctx context.Context, rows []models.UserLevel) error {
	return nil
}
func (s *stubLedgers) FindByID(ctx context.Context, id uuid.UUID) (*models.UserLevel, error) {
	return s.byID[id], nil
}
func (s *stubLedgers) FindByMemberAndTier(ctx context.Context, memberCode string, tierID uuid.UUID) (*models.UserLevel, error) {
	return s.byMemberTier[memberTierKey(memberCode, tierID)], nil
}
func (s *stubLedgers) FindByMemberAndOrder(ctx context.Context, memberCode string, order int) (*models.UserLevel, error) {
	return s.byMemberOrder[memberOrderKey(memberCode, order)], nil
}
func (s *stubLedgers) ListByMember(ctx context.Context, memberCode string) ([]models.UserLevel, error) {
	return nil, nil
}
func (s *stubLedgers) ListByMemberAndKind(ctx context.Context, memberCode string, kind enums.TierKind) ([]models.UserLevel, error) {
	return nil, nil
}
func (s *stubLedgers) SumReceivedExcludingKinds(ctx context.Context, memberCode string, excluded []enums.TierKind) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (s *stubLedgers) CountNotPaid(ctx context.Context, memberCode string) (int64, error) {
	return s.notPaidCount, nil
}
func (s *stubLedgers) CreditConditional(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	s.credits = append(s.credits, id)
	return s.creditResult, nil
}
func (s *stubLedgers) MarkPaid(ctx context.Context, id uuid.UUID, txnID string, mode enums.PaymentMethod) (bool, error) {
	s.markPaid = append(s.markPaid, id)
	return s.markPaidResult, nil
}
func (s *stubLedgers) Unlock(ctx context.Context, id uuid.UUID) error {
	s.unlocks = append(s.unlocks, id)
	return nil
}
func (s *stubLedgers) SetStatus(ctx context.Context, id uuid.UUID, status enums.LedgerStatus, payEnabled bool) error {
	s.statusCalls = append(s.statusCalls, struct {
		ID         uuid.UUID
		Status     enums.LedgerStatus
		PayEnabled bool
	}{id, status, payEnabled})
	return nil
}
func (s *stubLedgers) BindUplineIfEmpty(ctx context.Context, memberCode string, tierID uuid.UUID, uplineCode string) (bool, error) {
	return false, nil
}
func (s *stubLedgers) RetargetTier(tx *gorm.DB, tier models.Tier, newTarget decimal.Decimal) (int64, error) {
	return 0, nil
}

type stubCaps struct {
	decision caps.Decision
}

func (s *stubCaps) CanCredit(ctx context.Context, receiverCode string, tierAmount decimal.Decimal) (caps.Decision, error) {
	return s.decision, nil
}
func (s *stubCaps) StateFor(ctx context.Context, memberCode string) (caps.State, error) {
	return caps.State{}, nil
}

type stubEligibility struct {
	marked []string
}

func (s *stubEligibility) MarkEligibleTx(ctx context.Context, tx *gorm.DB, memberCode string) error {
	s.marked = append(s.marked, memberCode)
	return nil
}

type stubGateway struct {
	created *gateway.PaymentCreateParams
	payment *sq.Payment
	err     error
}

func (s *stubGateway) CreatePayment(ctx context.Context, params gateway.PaymentCreateParams) (*sq.Payment, error) {
	s.created = &params
	return s.payment, s.err
}
func (s *stubGateway) LocationID() string                     { return "LOC1" }
func (s *stubGateway) NewIdempotencyKey(prefix string) string { return prefix + "-key" }

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}
func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutbox) has(eventType enums.OutboxEventType) bool {
	for _, event := range s.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fixture struct {
	svc         Service
	payments    *stubPaymentsRepo
	ledgers     *stubLedgers
	caps        *stubCaps
	eligibility *stubEligibility
	gateway     *stubGateway
	outbox      *stubOutbox
}

func strPtr(s string) *string { return &s }

func matrixTier(order int, amount int64) *models.Tier {
	tier := &models.Tier{
		ID:        uuid.New(),
		Name:      "Matrix",
		Kind:      enums.TierKindMatrix,
		Amount:    decimal.NewFromInt(amount),
		TierOrder: order,
	}
	return tier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		payments: &stubPaymentsRepo{
			byID:       map[uuid.UUID]*models.LevelPayment{},
			markResult: true,
		},
		ledgers: &stubLedgers{
			byID:           map[uuid.UUID]*models.UserLevel{},
			byMemberTier:   map[string]*models.UserLevel{},
			byMemberOrder:  map[string]*models.UserLevel{},
			notPaidCount:   5,
			creditResult:   true,
			markPaidResult: true,
		},
		caps:        &stubCaps{decision: caps.Decision{Allowed: true}},
		eligibility: &stubEligibility{},
		gateway:     &stubGateway{},
		outbox:      &stubOutbox{},
	}
	svc, err := NewService(ServiceParams{
		Repo:        f.payments,
		Ledgers:     f.ledgers,
		Caps:        f.caps,
		Eligibility: f.eligibility,
		Gateway:     f.gateway,
		TxRunner:    stubTxRunner{},
		Outbox:      f.outbox,
		Logger:      logger.New(logger.Options{ServiceName: "payments-test"}),
	})
	if err != nil {
		t.Fatalf("new payments service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) seedLedgerRow(memberCode string, tier *models.Tier, status enums.LedgerStatus) *models.UserLevel {
	target := tier.Target()
	row := &models.UserLevel{
		ID:         uuid.New(),
		MemberCode: memberCode,
		TierID:     tier.ID,
		Tier:       tier,
		Status:     status,
		Active:     true,
		PayEnabled: true,
		Target:     target,
		Balance:    target,
	}
	f.ledgers.byID[row.ID] = row
	f.ledgers.byMemberTier[memberTierKey(memberCode, tier.ID)] = row
	f.ledgers.byMemberOrder[memberOrderKey(memberCode, tier.TierOrder)] = row
	return row
}

func TestInitiateRequiresSourceForGateway(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     uuid.New(),
		Method:     enums.PaymentMethodGateway,
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInitiateUnknownLedgerEntry(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     uuid.New(),
		Method:     enums.PaymentMethodGateway,
		SourceID:   "cnon:tok",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInitiateRejectsPaidEntry(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	f.seedLedgerRow("M100", tier, enums.LedgerStatusPaid)

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     tier.ID,
		Method:     enums.PaymentMethodGateway,
		SourceID:   "cnon:tok",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for paid entry, got %v", err)
	}
}

func TestInitiateRejectsLockedEntry(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(2, 200)
	row := f.seedLedgerRow("M100", tier, enums.LedgerStatusNotPaid)
	row.Active = false
	row.PayEnabled = false

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     tier.ID,
		Method:     enums.PaymentMethodGateway,
		SourceID:   "cnon:tok",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for locked entry, got %v", err)
	}
}

func TestInitiateRejectsSecondPending(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	f.seedLedgerRow("M100", tier, enums.LedgerStatusNotPaid)
	f.payments.pending = &models.LevelPayment{ID: uuid.New()}

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     tier.ID,
		Method:     enums.PaymentMethodGateway,
		SourceID:   "cnon:tok",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for second pending payment, got %v", err)
	}
}

func TestInitiateBlockedByUplineCap(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	row := f.seedLedgerRow("M100", tier, enums.LedgerStatusNotPaid)
	row.UplineCode = strPtr("M50")
	f.caps.decision = caps.Decision{
		Allowed:   false,
		Threshold: caps.ThresholdCap1,
		Reason:    "earnings reached 15000; PMF Part 1 of 1000 must be paid",
	}

	_, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     tier.ID,
		Method:     enums.PaymentMethodGateway,
		SourceID:   "cnon:tok",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeBlockedByCap {
		t.Fatalf("expected cap block, got %v", err)
	}
	if pkgerrors.As(err).Error() == "" {
		t.Fatal("cap block must carry the collaborator reason")
	}
}

func TestInitiateWithoutUplineProceeds(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	f.seedLedgerRow("M100", tier, enums.LedgerStatusNotPaid)
	f.caps.decision = caps.Decision{Allowed: false, Reason: "would block if consulted"}
	f.gateway.payment = &sq.Payment{ID: strPtr("gw-pay-1")}

	payment, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     tier.ID,
		Method:     enums.PaymentMethodGateway,
		SourceID:   "cnon:tok",
	})
	if err != nil {
		t.Fatalf("unresolved upline must not block initiation: %v", err)
	}
	if payment == nil {
		t.Fatal("expected a payment record")
	}
}

func TestInitiateGatewaySnapshotsAmount(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	f.seedLedgerRow("M100", tier, enums.LedgerStatusNotPaid)
	f.gateway.payment = &sq.Payment{ID: strPtr("gw-pay-1"), OrderID: strPtr("gw-ord-1")}

	payment, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     tier.ID,
		Method:     enums.PaymentMethodGateway,
		SourceID:   "cnon:tok",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if !payment.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("amount must snapshot the tier amount, got %s", payment.Amount)
	}
	if f.gateway.created == nil {
		t.Fatal("gateway was not charged")
	}
	if f.gateway.created.AmountCents != 10000 {
		t.Fatalf("expected 10000 cents, got %d", f.gateway.created.AmountCents)
	}
	if f.gateway.created.ReferenceID != payment.ID.String() {
		t.Fatal("gateway reference must carry the payment id")
	}
	if payment.GatewayPaymentID == nil || *payment.GatewayPaymentID != "gw-pay-1" {
		t.Fatal("gateway payment id was not recorded")
	}
	if len(f.ledgers.statusCalls) != 0 {
		t.Fatal("gateway initiation leaves the ledger status untouched until settlement")
	}
}

func TestInitiateManualMovesLedgerToPending(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	row := f.seedLedgerRow("M100", tier, enums.LedgerStatusNotPaid)

	payment, err := f.svc.Initiate(context.Background(), InitiateInput{
		MemberCode: "M100",
		TierID:     tier.ID,
		Method:     enums.PaymentMethodManual,
		ProofRef:   "receipts/abc.jpg",
		PIN:        "482913",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if payment.ProofRef == nil || *payment.ProofRef != "receipts/abc.jpg" {
		t.Fatal("manual proof reference was not stored")
	}
	if payment.ProofPINHash == nil || *payment.ProofPINHash == "" {
		t.Fatal("manual proof pin must be stored hashed")
	}
	if *payment.ProofPINHash == "482913" {
		t.Fatal("pin must never be stored in the clear")
	}
	if len(f.ledgers.statusCalls) != 1 {
		t.Fatalf("expected one ledger status update, got %d", len(f.ledgers.statusCalls))
	}
	call := f.ledgers.statusCalls[0]
	if call.ID != row.ID || call.Status != enums.LedgerStatusPending || call.PayEnabled {
		t.Fatalf("manual initiation must move the entry to pending and close it, got %+v", call)
	}
}

func seedVerifiedCascade(t *testing.T, f *fixture) (*models.LevelPayment, *models.UserLevel, *models.UserLevel, *models.UserLevel) {
	t.Helper()
	tier := matrixTier(1, 100)
	row := f.seedLedgerRow("M100", tier, enums.LedgerStatusNotPaid)
	row.UplineCode = strPtr("M50")
	uplineRow := f.seedLedgerRow("M50", tier, enums.LedgerStatusPaid)

	nextTier := matrixTier(2, 200)
	nextRow := f.seedLedgerRow("M100", nextTier, enums.LedgerStatusNotPaid)
	nextRow.Active = false
	nextRow.PayEnabled = false

	payment := &models.LevelPayment{
		ID:          uuid.New(),
		UserLevelID: row.ID,
		MemberCode:  "M100",
		Amount:      tier.Amount,
		Status:      enums.PaymentStatusPending,
		Method:      enums.PaymentMethodGateway,
	}
	f.payments.byID[payment.ID] = payment
	return payment, row, uplineRow, nextRow
}

func TestOnPaymentVerifiedRunsCascade(t *testing.T) {
	f := newFixture(t)
	payment, row, uplineRow, nextRow := seedVerifiedCascade(t, f)

	if err := f.svc.OnPaymentVerified(context.Background(), payment.ID, strPtr("gw-pay-1")); err != nil {
		t.Fatalf("on payment verified: %v", err)
	}
	if len(f.payments.verified) != 1 {
		t.Fatal("payment was not marked verified")
	}
	if len(f.ledgers.markPaid) != 1 || f.ledgers.markPaid[0] != row.ID {
		t.Fatal("payer ledger entry was not marked paid")
	}
	if len(f.ledgers.credits) != 1 || f.ledgers.credits[0] != uplineRow.ID {
		t.Fatal("upline same-tier entry was not credited")
	}
	if len(f.ledgers.unlocks) != 1 || f.ledgers.unlocks[0] != nextRow.ID {
		t.Fatal("next matrix rung was not unlocked")
	}
	if !f.outbox.has(enums.EventPaymentVerified) || !f.outbox.has(enums.EventLedgerCredited) || !f.outbox.has(enums.EventLevelUnlocked) {
		t.Fatalf("cascade events missing, got %v", f.outbox.events)
	}
	if len(f.eligibility.marked) != 0 {
		t.Fatal("member with unpaid entries must not become eligible")
	}
}

func TestOnPaymentVerifiedReplayIsNoop(t *testing.T) {
	f := newFixture(t)
	payment, _, _, _ := seedVerifiedCascade(t, f)
	payment.Status = enums.PaymentStatusVerified

	if err := f.svc.OnPaymentVerified(context.Background(), payment.ID, nil); err != nil {
		t.Fatalf("replay must be a no-op: %v", err)
	}
	if len(f.payments.verified) != 0 || len(f.ledgers.markPaid) != 0 || len(f.ledgers.credits) != 0 {
		t.Fatal("replay must not repeat the cascade")
	}
}

func TestOnPaymentVerifiedSkipsCreditOnShortBalance(t *testing.T) {
	f := newFixture(t)
	payment, _, uplineRow, _ := seedVerifiedCascade(t, f)
	f.ledgers.creditResult = false

	if err := f.svc.OnPaymentVerified(context.Background(), payment.ID, nil); err != nil {
		t.Fatalf("short balance must not fail settlement: %v", err)
	}
	if len(f.ledgers.credits) != 1 || f.ledgers.credits[0] != uplineRow.ID {
		t.Fatal("credit should have been attempted")
	}
	if !f.outbox.has(enums.EventCreditSkipped) {
		t.Fatal("skipped credit must be recorded")
	}
	if f.outbox.has(enums.EventLedgerCredited) {
		t.Fatal("no credit event when the balance cannot absorb it")
	}
}

func TestOnPaymentVerifiedCreditsAfterLateCapCross(t *testing.T) {
	f := newFixture(t)
	payment, _, uplineRow, _ := seedVerifiedCascade(t, f)
	// Cap state flipped between initiation and settlement. Caps gate
	// initiation only, so the credit still lands.
	f.caps.decision = caps.Decision{Allowed: false, Threshold: caps.ThresholdCap2, Reason: "income cap reached"}

	if err := f.svc.OnPaymentVerified(context.Background(), payment.ID, nil); err != nil {
		t.Fatalf("on payment verified: %v", err)
	}
	if len(f.ledgers.credits) != 1 || f.ledgers.credits[0] != uplineRow.ID {
		t.Fatal("cap state at settlement must not withhold the credit")
	}
	if !f.outbox.has(enums.EventLedgerCredited) {
		t.Fatal("credit event missing")
	}
	if f.outbox.has(enums.EventCreditSkipped) {
		t.Fatal("a landed credit must not also be recorded as skipped")
	}
}

func TestOnPaymentVerifiedRestrictsOrphanedSettlement(t *testing.T) {
	f := newFixture(t)
	payment, _, _, _ := seedVerifiedCascade(t, f)
	f.ledgers.markPaidResult = false

	if err := f.svc.OnPaymentVerified(context.Background(), payment.ID, nil); err != nil {
		t.Fatalf("on payment verified: %v", err)
	}
	if len(f.payments.restricted) != 1 || f.payments.restricted[0] != payment.ID {
		t.Fatal("a settlement with no ledger home must be held as restricted")
	}
	if len(f.ledgers.credits) != 0 || len(f.ledgers.unlocks) != 0 {
		t.Fatal("restricted settlements must not run the cascade")
	}
}

func TestOnPaymentVerifiedFinalTierFlagsEligibility(t *testing.T) {
	f := newFixture(t)
	payment, _, _, _ := seedVerifiedCascade(t, f)
	f.ledgers.notPaidCount = 0

	if err := f.svc.OnPaymentVerified(context.Background(), payment.ID, nil); err != nil {
		t.Fatalf("on payment verified: %v", err)
	}
	if len(f.eligibility.marked) != 1 || f.eligibility.marked[0] != "M100" {
		t.Fatal("fully paid member must be flagged eligible")
	}
}

func TestOnPaymentFailedReopensLedger(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	row := f.seedLedgerRow("M100", tier, enums.LedgerStatusPending)
	payment := &models.LevelPayment{
		ID:          uuid.New(),
		UserLevelID: row.ID,
		MemberCode:  "M100",
		Status:      enums.PaymentStatusPending,
		Method:      enums.PaymentMethodManual,
	}
	f.payments.byID[payment.ID] = payment

	if err := f.svc.OnPaymentFailed(context.Background(), payment.ID, "proof rejected"); err != nil {
		t.Fatalf("on payment failed: %v", err)
	}
	if len(f.payments.failed) != 1 {
		t.Fatal("payment was not marked failed")
	}
	if len(f.ledgers.statusCalls) != 1 {
		t.Fatalf("expected one ledger status update, got %d", len(f.ledgers.statusCalls))
	}
	call := f.ledgers.statusCalls[0]
	if call.Status != enums.LedgerStatusRejected || !call.PayEnabled {
		t.Fatalf("failed payment must reject and reopen the entry, got %+v", call)
	}
	if !f.outbox.has(enums.EventPaymentFailed) {
		t.Fatal("failure event missing")
	}
}

func TestOnPaymentFailedTerminalIsNoop(t *testing.T) {
	f := newFixture(t)
	payment := &models.LevelPayment{
		ID:     uuid.New(),
		Status: enums.PaymentStatusVerified,
	}
	f.payments.byID[payment.ID] = payment

	if err := f.svc.OnPaymentFailed(context.Background(), payment.ID, "late decline"); err != nil {
		t.Fatalf("terminal payment must be a no-op: %v", err)
	}
	if len(f.payments.failed) != 0 {
		t.Fatal("verified payment must never flip to failed")
	}
}

func TestSetLedgerStatusRejectsPaidTarget(t *testing.T) {
	f := newFixture(t)
	err := f.svc.SetLedgerStatus(context.Background(), uuid.New(), enums.LedgerStatusPaid)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("paid is only reachable through the cascade, got %v", err)
	}
}

func TestSetLedgerStatusPaidEntriesImmutable(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	row := f.seedLedgerRow("M100", tier, enums.LedgerStatusPaid)

	err := f.svc.SetLedgerStatus(context.Background(), row.ID, enums.LedgerStatusRejected)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("paid entries are immutable, got %v", err)
	}
}

func TestSetLedgerStatusOverride(t *testing.T) {
	f := newFixture(t)
	tier := matrixTier(1, 100)
	row := f.seedLedgerRow("M100", tier, enums.LedgerStatusPending)

	if err := f.svc.SetLedgerStatus(context.Background(), row.ID, enums.LedgerStatusRejected); err != nil {
		t.Fatalf("set ledger status: %v", err)
	}
	if len(f.ledgers.statusCalls) != 1 {
		t.Fatal("status was not updated")
	}
	call := f.ledgers.statusCalls[0]
	if call.Status != enums.LedgerStatusRejected || !call.PayEnabled {
		t.Fatalf("rejecting reopens the entry for retry, got %+v", call)
	}
}
