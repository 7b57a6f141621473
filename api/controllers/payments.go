package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/api/middleware"
	"github.com/growthloop/matrixpay-backend/api/responses"
	"github.com/growthloop/matrixpay-backend/api/validators"
	"github.com/growthloop/matrixpay-backend/internal/payments"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
	pkgpagination "github.com/growthloop/matrixpay-backend/pkg/pagination"
)

type paymentInitiateRequest struct {
	TierID   string `json:"tier_id" validate:"required"`
	Method   string `json:"method" validate:"required"`
	SourceID string `json:"source_id"`
	ProofRef string `json:"proof_ref"`
	PIN      string `json:"pin"`
}

func (r paymentInitiateRequest) toInput(memberCode string) (payments.InitiateInput, error) {
	tierID, err := uuid.Parse(strings.TrimSpace(r.TierID))
	if err != nil {
		return payments.InitiateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier_id")
	}

	method, err := enums.ParsePaymentMethod(strings.TrimSpace(r.Method))
	if err != nil {
		return payments.InitiateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	return payments.InitiateInput{
		MemberCode: memberCode,
		TierID:     tierID,
		Method:     method,
		SourceID:   strings.TrimSpace(r.SourceID),
		ProofRef:   strings.TrimSpace(r.ProofRef),
		PIN:        r.PIN,
	}, nil
}

// PaymentInitiate starts a payment for the authenticated member's ledger entry.
func PaymentInitiate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		memberCode := middleware.MemberCodeFromContext(r.Context())
		if memberCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing"))
			return
		}

		var payload paymentInitiateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(memberCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Initiate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, paymentResponseFromModel(created))
	}
}

// PaymentDetail returns one payment owned by the authenticated member.
func PaymentDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		memberCode := middleware.MemberCodeFromContext(r.Context())
		if memberCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing"))
			return
		}

		paymentID, err := uuid.Parse(chi.URLParam(r, "paymentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		payment, err := svc.GetPayment(r.Context(), paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payment.MemberCode != memberCode && middleware.RoleFromContext(r.Context()) != string(enums.MemberRoleAdmin) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found"))
			return
		}

		responses.WriteSuccess(w, paymentResponseFromModel(payment))
	}
}

// PaymentList returns the authenticated member's payments, newest first.
func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		memberCode := middleware.MemberCodeFromContext(r.Context())
		if memberCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pkgpagination.DefaultLimit, 1, pkgpagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByMember(r.Context(), payments.ListParams{
			MemberCode: memberCode,
			Params: pkgpagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type ledgerStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminSetLedgerStatus overrides one ledger entry's status. Paid entries are
// immutable; only pending and rejected can be assigned.
func AdminSetLedgerStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userLevelID, err := uuid.Parse(chi.URLParam(r, "userLevelId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid ledger entry id"))
			return
		}

		var payload ledgerStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseLedgerStatus(strings.TrimSpace(payload.Status))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid ledger status"))
			return
		}

		if err := svc.SetLedgerStatus(r.Context(), userLevelID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"user_level_id": userLevelID,
			"status":        status,
		})
	}
}

type paymentResponse struct {
	ID               uuid.UUID           `json:"id"`
	UserLevelID      uuid.UUID           `json:"user_level_id"`
	MemberCode       string              `json:"member_code"`
	TierName         string              `json:"tier_name,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
	Status           enums.PaymentStatus `json:"status"`
	Method           enums.PaymentMethod `json:"method"`
	GatewayOrderID   *string             `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string             `json:"gateway_payment_id,omitempty"`
	ProofRef         *string             `json:"proof_ref,omitempty"`
	FailureReason    *string             `json:"failure_reason,omitempty"`
	VerifiedAt       *time.Time          `json:"verified_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

func paymentResponseFromModel(m *models.LevelPayment) paymentResponse {
	resp := paymentResponse{
		ID:               m.ID,
		UserLevelID:      m.UserLevelID,
		MemberCode:       m.MemberCode,
		Amount:           m.Amount,
		Status:           m.Status,
		Method:           m.Method,
		GatewayOrderID:   m.GatewayOrderID,
		GatewayPaymentID: m.GatewayPaymentID,
		ProofRef:         m.ProofRef,
		FailureReason:    m.FailureReason,
		VerifiedAt:       m.VerifiedAt,
		CreatedAt:        m.CreatedAt,
	}
	if m.UserLevel != nil && m.UserLevel.Tier != nil {
		resp.TierName = m.UserLevel.Tier.Name
	}
	return resp
}
