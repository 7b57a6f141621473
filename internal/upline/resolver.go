package upline

import (
	"context"
	"fmt"
	"strings"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

// Config carries the resolver's fixed identities. Passed in explicitly so the
// resolver never reads ambient settings.
type Config struct {
	AdminCode      string
	FallbackPrefix string
}

type memberReader interface {
	FindByCode(ctx context.Context, code string) (*models.Member, error)
	ListByCodePrefix(ctx context.Context, prefix string) ([]models.Member, error)
}

// Resolver determines which member receives credit for a (member, tier) pair.
// Resolution never fails hard: an unresolvable link comes back nil with a
// warning for the caller to aggregate, because onboarding must not abort on an
// incomplete matrix.
type Resolver struct {
	cfg     Config
	members memberReader
	logg    *logger.Logger
}

// NewResolver validates the configuration and wires the resolver.
func NewResolver(cfg Config, members memberReader, logg *logger.Logger) (*Resolver, error) {
	if strings.TrimSpace(cfg.AdminCode) == "" {
		return nil, fmt.Errorf("admin member code required")
	}
	if strings.TrimSpace(cfg.FallbackPrefix) == "" {
		return nil, fmt.Errorf("fallback pool prefix required")
	}
	if members == nil {
		return nil, fmt.Errorf("member reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{cfg: cfg, members: members, logg: logg}, nil
}

// AdminCode exposes the configured platform administrator identity.
func (r *Resolver) AdminCode() string {
	return r.cfg.AdminCode
}

// FallbackPrefix exposes the synthetic pool identifier prefix.
func (r *Resolver) FallbackPrefix() string {
	return r.cfg.FallbackPrefix
}

// IsSynthetic reports whether a member code belongs to the bootstrap pool.
func (r *Resolver) IsSynthetic(code string) bool {
	return strings.HasPrefix(code, r.cfg.FallbackPrefix)
}

// ResolveForTier picks the upline for one ledger row. Matrix tiers walk the
// placement chain order hops, falling back to the synthetic pool on a broken
// chain. The unlock tier binds to the sponsor when one exists, else the
// administrator. Fee tiers always bind to the administrator.
//
// The returned warning is nil when a link was found; it never aborts the
// caller.
func (r *Resolver) ResolveForTier(ctx context.Context, member *models.Member, tier models.Tier) (*string, error) {
	if member == nil {
		return nil, fmt.Errorf("member required for upline resolution")
	}

	switch tier.Kind {
	case enums.TierKindMatrix:
		return r.resolveMatrix(ctx, member, tier)
	case enums.TierKindUnlock:
		return r.resolveUnlock(ctx, member)
	case enums.TierKindFee:
		code := r.cfg.AdminCode
		return &code, nil
	default:
		return nil, fmt.Errorf("unknown tier kind %q for tier %s", tier.Kind, tier.Name)
	}
}

func (r *Resolver) resolveMatrix(ctx context.Context, member *models.Member, tier models.Tier) (*string, error) {
	depth := tier.TierOrder
	current := member
	for hop := 0; hop < depth; hop++ {
		if current.PlacementCode == nil || strings.TrimSpace(*current.PlacementCode) == "" {
			return r.fallback(ctx, member.MemberCode, tier, depth-1)
		}
		next, err := r.members.FindByCode(ctx, *current.PlacementCode)
		if err != nil {
			return nil, fmt.Errorf("walk placement chain for %s at hop %d: %w", member.MemberCode, hop, err)
		}
		if next == nil {
			return r.fallback(ctx, member.MemberCode, tier, depth-1)
		}
		current = next
	}
	code := current.MemberCode
	return &code, nil
}

// fallback selects the (depth-1)-th synthetic pool member by stable code
// order so early members land on deterministic, collision-free uplines.
func (r *Resolver) fallback(ctx context.Context, memberCode string, tier models.Tier, index int) (*string, error) {
	pool, err := r.members.ListByCodePrefix(ctx, r.cfg.FallbackPrefix)
	if err != nil {
		return nil, fmt.Errorf("load fallback pool: %w", err)
	}
	if index < 0 || index >= len(pool) {
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"member_code": memberCode,
			"tier":        tier.Name,
			"pool_size":   len(pool),
		})
		r.logg.Warn(logCtx, "fallback pool exhausted, upline left unresolved")
		return nil, fmt.Errorf("fallback pool exhausted for %s tier %s", memberCode, tier.Name)
	}
	code := pool[index].MemberCode
	return &code, nil
}

func (r *Resolver) resolveUnlock(ctx context.Context, member *models.Member) (*string, error) {
	if member.SponsorCode != nil && strings.TrimSpace(*member.SponsorCode) != "" {
		sponsor, err := r.members.FindByCode(ctx, *member.SponsorCode)
		if err != nil {
			return nil, fmt.Errorf("look up sponsor %s: %w", *member.SponsorCode, err)
		}
		if sponsor != nil {
			code := sponsor.MemberCode
			return &code, nil
		}
		logCtx := r.logg.WithFields(ctx, map[string]any{
			"member_code":  member.MemberCode,
			"sponsor_code": *member.SponsorCode,
		})
		r.logg.Warn(logCtx, "sponsor not found, unlock tier binds to administrator")
	}
	code := r.cfg.AdminCode
	return &code, nil
}
