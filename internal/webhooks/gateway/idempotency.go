package gatewaywebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/growthloop/matrixpay-backend/pkg/outbox/idempotency"
	"github.com/growthloop/matrixpay-backend/pkg/redis"
)

// IdempotencyGuard deduplicates gateway webhook deliveries under a fixed
// consumer scope. Wraps the shared event idempotency manager.
type IdempotencyGuard struct {
	manager *idempotency.Manager
	scope   string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	manager, err := idempotency.NewManager(store, ttl)
	if err != nil {
		return nil, err
	}
	return &IdempotencyGuard{
		manager: manager,
		scope:   scope,
	}, nil
}

func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	already, err := g.manager.CheckAndMarkProcessed(ctx, g.scope, eventID)
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return already, nil
}

func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.manager.Delete(ctx, g.scope, eventID)
}
