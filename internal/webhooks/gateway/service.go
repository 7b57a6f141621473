package gatewaywebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

type paymentProcessor interface {
	OnPaymentVerified(ctx context.Context, paymentID uuid.UUID, gatewayPaymentID *string) error
	OnPaymentFailed(ctx context.Context, paymentID uuid.UUID, reason string) error
	FindByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*models.LevelPayment, error)
}

type ServiceParams struct {
	Payments paymentProcessor
	Logger   *logger.Logger
}

type Service struct {
	payments paymentProcessor
	logger   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		logger:   params.Logger,
	}, nil
}

type GatewayWebhookEvent struct {
	EventID string             `json:"event_id"`
	Type    string             `json:"type"`
	Data    GatewayWebhookData `json:"data"`
}

type GatewayWebhookData struct {
	Type   string               `json:"type"`
	ID     string               `json:"id"`
	Object GatewayWebhookObject `json:"object"`
}

type GatewayWebhookObject struct {
	Payment *GatewayPayment `json:"payment"`
}

// GatewayPayment is the slice of the gateway's payment object the engine
// cares about. ReferenceID carries the level payment id set at initiation.
type GatewayPayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id"`
}

// HandleEvent processes gateway payment lifecycle events. Settlement and
// failure both route into the payments service; every other status is
// acknowledged without side effects.
func (s *Service) HandleEvent(ctx context.Context, event *GatewayWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "gateway event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		gp := event.Data.Object.Payment
		if gp == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
		}
		return s.handlePayment(ctx, gp)
	default:
		return nil
	}
}

func (s *Service) handlePayment(ctx context.Context, gp *GatewayPayment) error {
	status := strings.ToUpper(strings.TrimSpace(gp.Status))
	switch status {
	case "COMPLETED", "FAILED", "CANCELED":
	default:
		return nil
	}

	paymentID, ok, err := s.resolvePaymentID(ctx, gp)
	if err != nil {
		return err
	}
	if !ok {
		logCtx := s.logger.WithFields(ctx, map[string]any{
			"gateway_payment_id": gp.ID,
			"reference_id":       gp.ReferenceID,
		})
		s.logger.Warn(logCtx, "gateway payment does not match any level payment")
		return nil
	}

	switch status {
	case "COMPLETED":
		var gatewayID *string
		if gp.ID != "" {
			id := gp.ID
			gatewayID = &id
		}
		return s.payments.OnPaymentVerified(ctx, paymentID, gatewayID)
	default:
		reason := fmt.Sprintf("gateway reported %s", strings.ToLower(status))
		return s.payments.OnPaymentFailed(ctx, paymentID, reason)
	}
}

func (s *Service) resolvePaymentID(ctx context.Context, gp *GatewayPayment) (uuid.UUID, bool, error) {
	if ref := strings.TrimSpace(gp.ReferenceID); ref != "" {
		if id, err := uuid.Parse(ref); err == nil {
			return id, true, nil
		}
	}

	if gp.ID == "" {
		return uuid.Nil, false, nil
	}
	payment, err := s.payments.FindByGatewayPaymentID(ctx, gp.ID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if payment == nil {
		return uuid.Nil, false, nil
	}
	return payment.ID, true, nil
}
