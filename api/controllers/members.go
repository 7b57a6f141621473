package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/growthloop/matrixpay-backend/api/responses"
	"github.com/growthloop/matrixpay-backend/api/validators"
	"github.com/growthloop/matrixpay-backend/internal/members"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

type memberCreatedRequest struct {
	MemberCode    string  `json:"member_code" validate:"required"`
	FullName      string  `json:"full_name" validate:"required"`
	SponsorCode   *string `json:"sponsor_code"`
	PlacementCode *string `json:"placement_code"`
}

func (r memberCreatedRequest) toInput() members.OnMemberCreatedInput {
	return members.OnMemberCreatedInput{
		MemberCode:    strings.ToUpper(strings.TrimSpace(r.MemberCode)),
		FullName:      strings.TrimSpace(r.FullName),
		SponsorCode:   normalizeCodePtr(r.SponsorCode),
		PlacementCode: normalizeCodePtr(r.PlacementCode),
	}
}

func normalizeCodePtr(value *string) *string {
	if value == nil {
		return nil
	}
	code := strings.ToUpper(strings.TrimSpace(*value))
	if code == "" {
		return nil
	}
	return &code
}

// MemberCreatedHook receives the membership platform's onboarding callback
// and provisions the member's full ladder.
func MemberCreatedHook(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		var payload memberCreatedRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payload.toInput()
		if err := svc.OnMemberCreated(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"member_code": input.MemberCode,
			"status":      "provisioned",
		})
	}
}

// MemberDetail returns one member by code.
func MemberDetail(svc members.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "member service unavailable"))
			return
		}

		code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "memberCode")))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "member code required"))
			return
		}

		member, err := svc.GetMember(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, memberResponseFromModel(member))
	}
}

type memberResponse struct {
	ID            uuid.UUID  `json:"id"`
	MemberCode    string     `json:"member_code"`
	FullName      string     `json:"full_name"`
	SponsorCode   *string    `json:"sponsor_code,omitempty"`
	PlacementCode *string    `json:"placement_code,omitempty"`
	ReferEligible bool       `json:"refer_eligible"`
	EligibleAt    *time.Time `json:"eligible_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func memberResponseFromModel(m *models.Member) memberResponse {
	return memberResponse{
		ID:            m.ID,
		MemberCode:    m.MemberCode,
		FullName:      m.FullName,
		SponsorCode:   m.SponsorCode,
		PlacementCode: m.PlacementCode,
		ReferEligible: m.ReferEligible,
		EligibleAt:    m.EligibleAt,
		CreatedAt:     m.CreatedAt,
	}
}
