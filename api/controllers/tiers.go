package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/growthloop/matrixpay-backend/api/responses"
	"github.com/growthloop/matrixpay-backend/api/validators"
	"github.com/growthloop/matrixpay-backend/internal/catalog"
	"github.com/growthloop/matrixpay-backend/pkg/db/models"
	"github.com/growthloop/matrixpay-backend/pkg/enums"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

// TierList returns the full ladder ordered by rung.
func TierList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		tiers, err := svc.ListTiers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]tierResponse, len(tiers))
		for i, tier := range tiers {
			items[i] = tierResponseFromModel(tier)
		}
		responses.WriteSuccess(w, items)
	}
}

// TierDetail returns one tier by name.
func TierDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		name := strings.TrimSpace(chi.URLParam(r, "tierName"))
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tier name required"))
			return
		}

		tier, err := svc.GetTier(r.Context(), name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tierResponseFromModel(*tier))
	}
}

type tierUpsertRequest struct {
	Name     string          `json:"name" validate:"required"`
	Kind     string          `json:"kind" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Order    int             `json:"order" validate:"required"`
	Benefits []string        `json:"benefits"`
}

func (r tierUpsertRequest) toInput() (catalog.UpsertTierInput, error) {
	kind, err := enums.ParseTierKind(strings.TrimSpace(r.Kind))
	if err != nil {
		return catalog.UpsertTierInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid tier kind")
	}

	return catalog.UpsertTierInput{
		Name:     strings.TrimSpace(r.Name),
		Kind:     kind,
		Amount:   r.Amount,
		Order:    r.Order,
		Benefits: r.Benefits,
	}, nil
}

// AdminTierUpsert creates or updates a tier. An amount change on an existing
// tier retargets every ledger entry on that rung in the same transaction.
func AdminTierUpsert(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload tierUpsertRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tier, err := svc.UpsertTier(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tierResponseFromModel(*tier))
	}
}

type tierResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Kind      enums.TierKind  `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Order     int             `json:"order"`
	Target    decimal.Decimal `json:"target"`
	Benefits  []string        `json:"benefits"`
	CreatedAt time.Time       `json:"created_at"`
}

func tierResponseFromModel(m models.Tier) tierResponse {
	return tierResponse{
		ID:        m.ID,
		Name:      m.Name,
		Kind:      m.Kind,
		Amount:    m.Amount,
		Order:     m.TierOrder,
		Target:    m.Target(),
		Benefits:  m.Benefits,
		CreatedAt: m.CreatedAt,
	}
}
