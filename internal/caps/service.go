package caps

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
)

// Earning-cap thresholds and unlock fees. Fixed constants rather than runtime
// configuration so a mid-cycle change can never race the snapshot reads.
var (
	CapUnlock = decimal.NewFromInt(10000)
	Cap1      = decimal.NewFromInt(15000)
	Cap2      = decimal.NewFromInt(25000)

	FeePartOne = decimal.NewFromInt(1000)
	FeePartTwo = decimal.NewFromInt(2000)
)

// Fee and unlock tier names as seeded in the catalog.
const (
	UnlockTierName  = "Refer Help"
	FeePartOneName  = "PMF Part 1"
	FeePartTwoName  = "PMF Part 2"
	ThresholdUnlock = "cap_unlock"
	ThresholdCap1   = "cap_1"
	ThresholdCap2   = "cap_2"
)

// Decision is the outcome of a cap check against a receiving member.
type Decision struct {
	Allowed     bool
	Threshold   string
	Reason      string
	RequiredFee decimal.Decimal
	FeeName     string
}

// State is the derived cap snapshot exposed to read collaborators.
type State struct {
	MemberCode    string          `json:"member_code"`
	TotalReceived decimal.Decimal `json:"total_received"`
	FeeStage      enums.FeeStage  `json:"fee_stage"`
	UnlockPaid    bool            `json:"unlock_paid"`
	Blocked       bool            `json:"blocked"`
	BlockReason   string          `json:"block_reason,omitempty"`
}

// ChildGate is the external rebirth/child collaborator consulted before any
// tiered threshold. A blocked result is returned verbatim and outranks the
// cap checks.
type ChildGate interface {
	Check(ctx context.Context, memberCode string) (allowed bool, reason string, err error)
}

// AllowAllChildGate is the default gate used when no collaborator is wired.
type AllowAllChildGate struct{}

func (AllowAllChildGate) Check(context.Context, string) (bool, string, error) {
	return true, "", nil
}

type ledgerReader interface {
	SumReceivedExcludingKinds(ctx context.Context, memberCode string, excluded []enums.TierKind) (decimal.Decimal, error)
	ListByMemberAndKind(ctx context.Context, memberCode string, kind enums.TierKind) ([]models.UserLevel, error)
}

type memberReader interface {
	FindByCode(ctx context.Context, code string) (*models.Member, error)
}

// Config carries the identities exempt from cap checks.
type Config struct {
	FallbackPrefix string
}

// Service evaluates whether a receiving member may be credited.
type Service interface {
	CanCredit(ctx context.Context, receiverCode string, tierAmount decimal.Decimal) (Decision, error)
	StateFor(ctx context.Context, memberCode string) (State, error)
}

type service struct {
	cfg       Config
	ledgers   ledgerReader
	members   memberReader
	childGate ChildGate
}

type ServiceParams struct {
	Config    Config
	Ledgers   ledgerReader
	Members   memberReader
	ChildGate ChildGate
}

// NewService wires cap enforcement. A nil child gate defaults to allow-all.
func NewService(params ServiceParams) (Service, error) {
	if strings.TrimSpace(params.Config.FallbackPrefix) == "" {
		return nil, fmt.Errorf("fallback pool prefix required")
	}
	if params.Ledgers == nil {
		return nil, fmt.Errorf("ledger reader required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("member reader required")
	}
	gate := params.ChildGate
	if gate == nil {
		gate = AllowAllChildGate{}
	}
	return &service{
		cfg:       params.Config,
		ledgers:   params.Ledgers,
		members:   params.Members,
		childGate: gate,
	}, nil
}

// CanCredit runs the gate sequence: exemptions, child gate, then the three
// thresholds strictly highest-first. Clearing a lower gate never substitutes
// for a higher one.
func (s *service) CanCredit(ctx context.Context, receiverCode string, tierAmount decimal.Decimal) (Decision, error) {
	receiver, err := s.members.FindByCode(ctx, receiverCode)
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receiving member")
	}
	if receiver != nil && receiver.IsAdmin {
		return Decision{Allowed: true}, nil
	}
	if strings.HasPrefix(receiverCode, s.cfg.FallbackPrefix) {
		return Decision{Allowed: true}, nil
	}

	allowed, reason, err := s.childGate.Check(ctx, receiverCode)
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "child gate check")
	}
	if !allowed {
		return Decision{Allowed: false, Threshold: "child_gate", Reason: reason}, nil
	}

	totalReceived, err := s.ledgers.SumReceivedExcludingKinds(ctx, receiverCode, []enums.TierKind{enums.TierKindUnlock, enums.TierKindFee})
	if err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum received credit")
	}

	if totalReceived.GreaterThanOrEqual(Cap2) {
		stage, err := s.feeStage(ctx, receiverCode)
		if err != nil {
			return Decision{}, err
		}
		if stage != enums.FeeStagePaid {
			fee, name := nextFee(stage)
			return Decision{
				Allowed:     false,
				Threshold:   ThresholdCap2,
				Reason:      fmt.Sprintf("earnings reached %s; %s of %s must be paid", Cap2.StringFixed(0), name, fee.StringFixed(0)),
				RequiredFee: fee,
				FeeName:     name,
			}, nil
		}
	} else if totalReceived.GreaterThanOrEqual(Cap1) {
		stage, err := s.feeStage(ctx, receiverCode)
		if err != nil {
			return Decision{}, err
		}
		if stage == enums.FeeStageNotPaid {
			return Decision{
				Allowed:     false,
				Threshold:   ThresholdCap1,
				Reason:      fmt.Sprintf("earnings reached %s; %s of %s must be paid", Cap1.StringFixed(0), FeePartOneName, FeePartOne.StringFixed(0)),
				RequiredFee: FeePartOne,
				FeeName:     FeePartOneName,
			}, nil
		}
	} else if totalReceived.GreaterThanOrEqual(CapUnlock) {
		unlockPaid, err := s.unlockPaid(ctx, receiverCode)
		if err != nil {
			return Decision{}, err
		}
		if !unlockPaid {
			return Decision{
				Allowed:     false,
				Threshold:   ThresholdUnlock,
				Reason:      fmt.Sprintf("earnings reached %s; the %s tier must be paid", CapUnlock.StringFixed(0), UnlockTierName),
				RequiredFee: decimal.Zero,
				FeeName:     UnlockTierName,
			}, nil
		}
	}

	return Decision{Allowed: true}, nil
}

// StateFor assembles the derived cap snapshot for read collaborators.
func (s *service) StateFor(ctx context.Context, memberCode string) (State, error) {
	totalReceived, err := s.ledgers.SumReceivedExcludingKinds(ctx, memberCode, []enums.TierKind{enums.TierKindUnlock, enums.TierKindFee})
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum received credit")
	}
	stage, err := s.feeStage(ctx, memberCode)
	if err != nil {
		return State{}, err
	}
	unlockRows, err := s.ledgers.ListByMemberAndKind(ctx, memberCode, enums.TierKindUnlock)
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unlock tier")
	}
	unlockPaid := len(unlockRows) > 0 && unlockRows[0].Status == enums.LedgerStatusPaid

	decision, err := s.CanCredit(ctx, memberCode, decimal.Zero)
	if err != nil {
		return State{}, err
	}

	return State{
		MemberCode:    memberCode,
		TotalReceived: totalReceived,
		FeeStage:      stage,
		UnlockPaid:    unlockPaid,
		Blocked:       !decision.Allowed,
		BlockReason:   decision.Reason,
	}, nil
}

// feeStage derives the two-stage fee status from the member's fee-tier ledger
// rows, ordered by tier order: part one first, part two second.
func (s *service) feeStage(ctx context.Context, memberCode string) (enums.FeeStage, error) {
	rows, err := s.ledgers.ListByMemberAndKind(ctx, memberCode, enums.TierKindFee)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fee tiers")
	}
	if len(rows) == 0 {
		return enums.FeeStageNotPaid, nil
	}
	partOnePaid := rows[0].Status == enums.LedgerStatusPaid
	partTwoPaid := len(rows) > 1 && rows[1].Status == enums.LedgerStatusPaid
	switch {
	case partOnePaid && partTwoPaid:
		return enums.FeeStagePaid, nil
	case partOnePaid:
		return enums.FeeStagePartOnePaid, nil
	default:
		return enums.FeeStageNotPaid, nil
	}
}

// unlockPaid checks the member's unlock-tier row. A missing row for a member
// above the cap is a setup defect, never silently defaulted.
func (s *service) unlockPaid(ctx context.Context, memberCode string) (bool, error) {
	rows, err := s.ledgers.ListByMemberAndKind(ctx, memberCode, enums.TierKindUnlock)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unlock tier")
	}
	if len(rows) == 0 {
		return false, pkgerrors.New(pkgerrors.CodeSetupError, fmt.Sprintf("member %s has no %s ledger entry", memberCode, UnlockTierName))
	}
	return rows[0].Status == enums.LedgerStatusPaid, nil
}

// nextFee names the outstanding installment for a Cap2 block.
func nextFee(stage enums.FeeStage) (decimal.Decimal, string) {
	if stage == enums.FeeStageNotPaid {
		return FeePartOne, FeePartOneName
	}
	return FeePartTwo, FeePartTwoName
}
