package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/growthloop/matrixpay-backend/api/middleware"
	"github.com/growthloop/matrixpay-backend/api/responses"
	"github.com/growthloop/matrixpay-backend/internal/ledger"
	pkgerrors "github.com/growthloop/matrixpay-backend/pkg/errors"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

// LedgerSnapshot returns the authenticated member's ladder plus cap state.
func LedgerSnapshot(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		memberCode := middleware.MemberCodeFromContext(r.Context())
		if memberCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing"))
			return
		}

		snapshot, err := svc.SnapshotFor(r.Context(), memberCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// LedgerEntries returns the authenticated member's ledger rows without the
// derived cap state.
func LedgerEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		memberCode := middleware.MemberCodeFromContext(r.Context())
		if memberCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "member context missing"))
			return
		}

		entries, err := svc.EntriesFor(r.Context(), memberCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}

// AdminMemberLedger returns any member's snapshot for support tooling.
func AdminMemberLedger(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		memberCode := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "memberCode")))
		if memberCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "member code required"))
			return
		}

		snapshot, err := svc.SnapshotFor(r.Context(), memberCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}
