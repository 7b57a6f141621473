package ledger

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/growthloop/matrixpay-backend/internal/caps"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

type stubReadRepo struct {
	rows    []models.UserLevel
	listErr error
}

func (s *stubReadRepo) WithTx(tx *gorm.DB) Repository { return s }
func (s *stubReadRepo) BatchInsert(ctx context.Context, rows []models.UserLevel) error {
	return nil
}
func (s *stubReadRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.UserLevel, error) {
	return nil, nil
}
func (s *stubReadRepo) FindByMemberAndTier(ctx context.Context, memberCode string, tierID uuid.UUID) (*models.UserLevel, error) {
	return nil, nil
}
func (s *stubReadRepo) FindByMemberAndOrder(ctx context.Context, memberCode string, order int) (*models.UserLevel, error) {
	return nil, nil
}
func (s *stubReadRepo) ListByMember(ctx context.Context, memberCode string) ([]models.UserLevel, error) {
	return s.rows, s.listErr
}
func (s *stubReadRepo) ListByMemberAndKind(ctx context.Context, memberCode string, kind enums.TierKind) ([]models.UserLevel, error) {
	return nil, nil
}
func (s *stubReadRepo) SumReceivedExcludingKinds(ctx context.Context, memberCode string, excluded []enums.TierKind) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (s *stubReadRepo) CountNotPaid(ctx context.Context, memberCode string) (int64, error) {
	return 0, nil
}
func (s *stubReadRepo) CreditConditional(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	return false, nil
}
func (s *stubReadRepo) MarkPaid(ctx context.Context, id uuid.UUID, txnID string, mode enums.PaymentMethod) (bool, error) {
	return false, nil
}
func (s *stubReadRepo) Unlock(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubReadRepo) SetStatus(ctx context.Context, id uuid.UUID, status enums.LedgerStatus, payEnabled bool) error {
	return nil
}
func (s *stubReadRepo) BindUplineIfEmpty(ctx context.Context, memberCode string, tierID uuid.UUID, uplineCode string) (bool, error) {
	return false, nil
}
func (s *stubReadRepo) RetargetTier(tx *gorm.DB, tier models.Tier, newTarget decimal.Decimal) (int64, error) {
	return 0, nil
}

type stubCapReader struct {
	state caps.State
	err   error
}

func (s *stubCapReader) StateFor(ctx context.Context, memberCode string) (caps.State, error) {
	return s.state, s.err
}

func newReadService(t *testing.T, repo Repository, capsReader capReader) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})
	svc, err := NewService(ServiceParams{Repo: repo, Caps: capsReader, Logger: logg})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestEntriesForFlattensTierFields(t *testing.T) {
	tier := &models.Tier{
		ID:        uuid.New(),
		Name:      "silver",
		Kind:      enums.TierKindMatrix,
		TierOrder: 3,
	}
	row := models.UserLevel{
		ID:       uuid.New(),
		Tier:     tier,
		Status:   enums.LedgerStatusNotPaid,
		Target:   decimal.RequireFromString("500"),
		Balance:  decimal.RequireFromString("300"),
		Received: decimal.RequireFromString("200"),
	}
	svc := newReadService(t, &stubReadRepo{rows: []models.UserLevel{row}}, &stubCapReader{})

	entries, err := svc.EntriesFor(context.Background(), " MX10001 ")
	if err != nil {
		t.Fatalf("EntriesFor returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.TierName != "silver" || entry.TierOrder != 3 {
		t.Fatalf("tier fields not flattened: %+v", entry)
	}
	if !entry.Balance.Equal(decimal.RequireFromString("300")) {
		t.Fatalf("unexpected balance %s", entry.Balance)
	}
}

func TestEntriesForRequiresMemberCode(t *testing.T) {
	svc := newReadService(t, &stubReadRepo{}, &stubCapReader{})

	_, err := svc.EntriesFor(context.Background(), "   ")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestSnapshotForIncludesCapState(t *testing.T) {
	state := caps.State{
		MemberCode:    "MX10001",
		TotalReceived: decimal.RequireFromString("1200"),
		FeeStage:      enums.FeeStageNotPaid,
		Blocked:       true,
		BlockReason:   "unlock fee pending",
	}
	svc := newReadService(t, &stubReadRepo{}, &stubCapReader{state: state})

	snap, err := svc.SnapshotFor(context.Background(), "MX10001")
	if err != nil {
		t.Fatalf("SnapshotFor returned error: %v", err)
	}
	if snap.MemberCode != "MX10001" {
		t.Fatalf("unexpected member code %s", snap.MemberCode)
	}
	if !snap.CapState.Blocked || snap.CapState.BlockReason != "unlock fee pending" {
		t.Fatalf("cap state not carried through: %+v", snap.CapState)
	}
}

func TestSnapshotForWrapsCapReaderFailure(t *testing.T) {
	svc := newReadService(t, &stubReadRepo{}, &stubCapReader{err: errors.New("redis down")})

	_, err := svc.SnapshotFor(context.Background(), "MX10001")
	if err == nil {
		t.Fatalf("expected dependency error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}
