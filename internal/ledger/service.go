package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/internal/caps"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

// Entry is one ledger row flattened for read surfaces.
type Entry struct {
	ID         uuid.UUID            `json:"id"`
	TierName   string               `json:"tier_name"`
	TierKind   enums.TierKind       `json:"tier_kind"`
	TierOrder  int                  `json:"tier_order"`
	Status     enums.LedgerStatus   `json:"status"`
	Active     bool                 `json:"active"`
	PayEnabled bool                 `json:"pay_enabled"`
	Target     decimal.Decimal      `json:"target"`
	Balance    decimal.Decimal      `json:"balance"`
	Received   decimal.Decimal      `json:"received"`
	UplineCode *string              `json:"upline_code,omitempty"`
	TxnID      *string              `json:"txn_id,omitempty"`
	PaidMode   *enums.PaymentMethod `json:"paid_mode,omitempty"`
}

// Snapshot is the member-facing read model: the full ladder plus the derived
// cap state, assembled in one call for the dashboard.
type Snapshot struct {
	MemberCode string     `json:"member_code"`
	Entries    []Entry    `json:"entries"`
	CapState   caps.State `json:"cap_state"`
}

// Service exposes ledger read models.
type Service interface {
	SnapshotFor(ctx context.Context, memberCode string) (*Snapshot, error)
	EntriesFor(ctx context.Context, memberCode string) ([]Entry, error)
}

type capReader interface {
	StateFor(ctx context.Context, memberCode string) (caps.State, error)
}

type ServiceParams struct {
	Repo   Repository
	Caps   capReader
	Logger *logger.Logger
}

type service struct {
	repo Repository
	caps capReader
	logg *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Caps == nil {
		return nil, fmt.Errorf("cap reader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, caps: params.Caps, logg: params.Logger}, nil
}

func (s *service) SnapshotFor(ctx context.Context, memberCode string) (*Snapshot, error) {
	code := strings.TrimSpace(memberCode)
	entries, err := s.EntriesFor(ctx, code)
	if err != nil {
		return nil, err
	}
	state, err := s.caps.StateFor(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "derive cap state")
	}
	return &Snapshot{MemberCode: code, Entries: entries, CapState: state}, nil
}

func (s *service) EntriesFor(ctx context.Context, memberCode string) ([]Entry, error) {
	code := strings.TrimSpace(memberCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member code is required")
	}
	rows, err := s.repo.ListByMember(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		if !entryConsistent(row) {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"user_level_id": row.ID.String(),
				"member_code":   code,
			})
			s.logg.Warn(logCtx, "ledger entry violates received+balance=target")
		}
		entry := Entry{
			ID:         row.ID,
			Status:     row.Status,
			Active:     row.Active,
			PayEnabled: row.PayEnabled,
			Target:     row.Target,
			Balance:    row.Balance,
			Received:   row.Received,
			UplineCode: row.UplineCode,
			TxnID:      row.TxnID,
			PaidMode:   row.PaidMode,
		}
		if row.Tier != nil {
			entry.TierName = row.Tier.Name
			entry.TierKind = row.Tier.Kind
			entry.TierOrder = row.Tier.TierOrder
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func entryConsistent(row models.UserLevel) bool {
	return row.Received.Add(row.Balance).Equal(row.Target)
}
