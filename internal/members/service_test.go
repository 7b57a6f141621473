package members

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/internal/ledger"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

type stubMembersRepo struct {
	upserted *models.Member
	eligible []string
	byCode   map[string]*models.Member
}

func (s *stubMembersRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubMembersRepo) Upsert(ctx context.Context, member *models.Member) error {
	s.upserted = member
	return nil
}
func (s *stubMembersRepo) FindByCode(ctx context.Context, code string) (*models.Member, error) {
	return s.byCode[code], nil
}
func (s *stubMembersRepo) ListByCodePrefix(ctx context.Context, prefix string) ([]models.Member, error) {
	return nil, nil
}
func (s *stubMembersRepo) MarkReferEligible(ctx context.Context, code string, at time.Time) error {
	s.eligible = append(s.eligible, code)
	return nil
}

type stubLedgerRepo struct {
	inserted  []models.UserLevel
	bindCalls []struct {
		MemberCode string
		TierID     uuid.UUID
		UplineCode string
	}
	bindResult bool
}

func (s *stubLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return s }
func (s *stubLedgerRepo) BatchInsert(ctx context.Context, rows []models.UserLevel) error {
	s.inserted = append(s.inserted, rows...)
	return nil
}
func (s *stubLedgerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.UserLevel, error) {
	return nil, nil
}
func (s *stubLedgerRepo) FindByMemberAndTier(ctx context.Context, memberCode string, tierID uuid.UUID) (*models.UserLevel, error) {
	return nil, nil
}
func (s *stubLedgerRepo) FindByMemberAndOrder(ctx context.Context, memberCode string, order int) (*models.UserLevel, error) {
	return nil, nil
}
func (s *stubLedgerRepo) ListByMember(ctx context.Context, memberCode string) ([]models.UserLevel, error) {
	return nil, nil
}
func (s *stubLedgerRepo) ListByMemberAndKind(ctx context.Context, memberCode string, kind enums.TierKind) ([]models.UserLevel, error) {
	return nil, nil
}
func (s *stubLedgerRepo) SumReceivedExcludingKinds(ctx context.Context, memberCode string, excluded []enums.TierKind) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (s *stubLedgerRepo) CountNotPaid(ctx context.Context, memberCode string) (int64, error) {
	return 0, nil
}
func (s *stubLedgerRepo) CreditConditional(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	return false, nil
}
func (s *stubLedgerRepo) MarkPaid(ctx context.Context, id uuid.UUID, txnID string, mode enums.PaymentMethod) (bool, error) {
	return false, nil
}
func (s *stubLedgerRepo) Unlock(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubLedgerRepo) SetStatus(ctx context.Context, id uuid.UUID, status enums.LedgerStatus, payEnabled bool) error {
	return nil
}
func (s *stubLedgerRepo) BindUplineIfEmpty(ctx context.Context, memberCode string, tierID uuid.UUID, uplineCode string) (bool, error) {
	s.bindCalls = append(s.bindCalls, struct {
		MemberCode string
		TierID     uuid.UUID
		UplineCode string
	}{memberCode, tierID, uplineCode})
	return s.bindResult, nil
}
func (s *stubLedgerRepo) RetargetTier(tx *gorm.DB, tier models.Tier, newTarget decimal.Decimal) (int64, error) {
	return 0, nil
}

type fixedCatalog struct {
	tiers []models.Tier
}

func (f *fixedCatalog) List(ctx context.Context) ([]models.Tier, error) { return f.tiers, nil }

type stubResolver struct {
	links map[string]*string
	errs  map[string]error
}

func (s *stubResolver) ResolveForTier(ctx context.Context, member *models.Member, tier models.Tier) (*string, error) {
	return s.links[tier.Name], s.errs[tier.Name]
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func strPtr(s string) *string { return &s }

func testCatalog() []models.Tier {
	amounts := []int64{100, 200, 400, 800, 1600, 3200}
	tiers := make([]models.Tier, 0, 9)
	names := []string{"Tier 1", "Tier 2", "Tier 3", "Tier 4", "Tier 5", "Tier 6"}
	for i, amount := range amounts {
		tiers = append(tiers, models.Tier{
			ID:        uuid.New(),
			Name:      names[i],
			Kind:      enums.TierKindMatrix,
			Amount:    decimal.NewFromInt(amount),
			TierOrder: i + 1,
		})
	}
	tiers = append(tiers,
		models.Tier{ID: uuid.New(), Name: "Refer Help", Kind: enums.TierKindUnlock, Amount: decimal.NewFromInt(1000), TierOrder: 7},
		models.Tier{ID: uuid.New(), Name: "PMF Part 1", Kind: enums.TierKindFee, Amount: decimal.NewFromInt(1000), TierOrder: 8},
		models.Tier{ID: uuid.New(), Name: "PMF Part 2", Kind: enums.TierKindFee, Amount: decimal.NewFromInt(2000), TierOrder: 9},
	)
	return tiers
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "members-test"})
}

func newTestService(t *testing.T, membersRepo *stubMembersRepo, ledgers *stubLedgerRepo, resolver *stubResolver) Service {
	t.Helper()
	if resolver == nil {
		resolver = &stubResolver{links: map[string]*string{}}
	}
	svc, err := NewService(ServiceParams{
		Repo:     membersRepo,
		Ledgers:  ledgers,
		Catalog:  &fixedCatalog{tiers: testCatalog()},
		Resolver: resolver,
		TxRunner: stubTxRunner{},
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("new members service: %v", err)
	}
	return svc
}

func TestOnMemberCreatedBuildsFullLadder(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{}}
	ledgers := &stubLedgerRepo{}
	svc := newTestService(t, membersRepo, ledgers, nil)

	err := svc.OnMemberCreated(context.Background(), OnMemberCreatedInput{
		MemberCode: "M100",
		FullName:   "Test Member",
	})
	if err != nil {
		t.Fatalf("on member created: %v", err)
	}
	if membersRepo.upserted == nil || membersRepo.upserted.MemberCode != "M100" {
		t.Fatal("member mirror was not upserted")
	}
	if len(ledgers.inserted) != 9 {
		t.Fatalf("expected 9 ledger rows, got %d", len(ledgers.inserted))
	}
	for _, row := range ledgers.inserted {
		if !row.Balance.Equal(row.Target) {
			t.Fatalf("fresh rows carry balance equal to target, got balance=%s target=%s", row.Balance, row.Target)
		}
		if !row.Received.IsZero() {
			t.Fatalf("fresh rows carry zero received, got %s", row.Received)
		}
		if row.Status != enums.LedgerStatusNotPaid {
			t.Fatalf("fresh rows start not_paid, got %s", row.Status)
		}
	}
}

func TestOnMemberCreatedTargetsDoublePerRung(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{}}
	ledgers := &stubLedgerRepo{}
	svc := newTestService(t, membersRepo, ledgers, nil)

	if err := svc.OnMemberCreated(context.Background(), OnMemberCreatedInput{MemberCode: "M100"}); err != nil {
		t.Fatalf("on member created: %v", err)
	}

	// matrix targets: amount * 2^order
	wantTargets := []int64{200, 800, 3200, 12800, 51200, 204800}
	for i, want := range wantTargets {
		got := ledgers.inserted[i].Target
		if !got.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("matrix rung %d target: want %d, got %s", i+1, want, got)
		}
	}
	// unlock and fee targets stay flat
	for i, want := range []int64{1000, 1000, 2000} {
		got := ledgers.inserted[6+i].Target
		if !got.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("flat tier %d target: want %d, got %s", i, want, got)
		}
	}
}

func TestOnMemberCreatedActivation(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{}}
	ledgers := &stubLedgerRepo{}
	svc := newTestService(t, membersRepo, ledgers, nil)

	if err := svc.OnMemberCreated(context.Background(), OnMemberCreatedInput{MemberCode: "M100"}); err != nil {
		t.Fatalf("on member created: %v", err)
	}

	for i, row := range ledgers.inserted {
		wantActive := i == 0 || i >= 6
		if row.Active != wantActive || row.PayEnabled != wantActive {
			t.Fatalf("row %d: active=%v pay_enabled=%v, want %v", i, row.Active, row.PayEnabled, wantActive)
		}
	}
}

func TestOnMemberCreatedStoresResolvedUplines(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{}}
	ledgers := &stubLedgerRepo{}
	resolver := &stubResolver{links: map[string]*string{
		"Tier 1":     strPtr("M50"),
		"Refer Help": strPtr("M60"),
	}}
	svc := newTestService(t, membersRepo, ledgers, resolver)

	if err := svc.OnMemberCreated(context.Background(), OnMemberCreatedInput{MemberCode: "M100"}); err != nil {
		t.Fatalf("on member created: %v", err)
	}
	if ledgers.inserted[0].UplineCode == nil || *ledgers.inserted[0].UplineCode != "M50" {
		t.Fatal("tier 1 upline should carry the resolved code")
	}
	if ledgers.inserted[6].UplineCode == nil || *ledgers.inserted[6].UplineCode != "M60" {
		t.Fatal("unlock tier upline should carry the resolved code")
	}
	if ledgers.inserted[1].UplineCode != nil {
		t.Fatal("unresolved links stay nil")
	}
}

func TestOnMemberCreatedBindsSponsorUnlock(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{}}
	ledgers := &stubLedgerRepo{bindResult: true}
	svc := newTestService(t, membersRepo, ledgers, nil)

	err := svc.OnMemberCreated(context.Background(), OnMemberCreatedInput{
		MemberCode:  "M100",
		SponsorCode: strPtr("M42"),
	})
	if err != nil {
		t.Fatalf("on member created: %v", err)
	}
	if len(ledgers.bindCalls) != 1 {
		t.Fatalf("expected one reverse-binding attempt, got %d", len(ledgers.bindCalls))
	}
	call := ledgers.bindCalls[0]
	if call.MemberCode != "M42" || call.UplineCode != "M100" {
		t.Fatalf("reverse binding should fill the sponsor's unlock link with the new member, got %+v", call)
	}
}

func TestOnMemberCreatedWithoutSponsorSkipsBinding(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{}}
	ledgers := &stubLedgerRepo{}
	svc := newTestService(t, membersRepo, ledgers, nil)

	if err := svc.OnMemberCreated(context.Background(), OnMemberCreatedInput{MemberCode: "M100"}); err != nil {
		t.Fatalf("on member created: %v", err)
	}
	if len(ledgers.bindCalls) != 0 {
		t.Fatal("no sponsor means no reverse binding")
	}
}

func TestOnMemberCreatedRequiresCode(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{}}
	svc := newTestService(t, membersRepo, &stubLedgerRepo{}, nil)

	err := svc.OnMemberCreated(context.Background(), OnMemberCreatedInput{MemberCode: "  "})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkEligibleTxFlipsFlag(t *testing.T) {
	membersRepo := &stubMembersRepo{byCode: map[string]*models.Member{
		"M100": {ID: uuid.New(), MemberCode: "M100"},
	}}
	svc := newTestService(t, membersRepo, &stubLedgerRepo{}, nil)

	if err := svc.MarkEligibleTx(context.Background(), nil, "M100"); err != nil {
		t.Fatalf("mark eligible: %v", err)
	}
	if len(membersRepo.eligible) != 1 || membersRepo.eligible[0] != "M100" {
		t.Fatalf("eligibility flag was not flipped, calls: %v", membersRepo.eligible)
	}
}
