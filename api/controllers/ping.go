package controllers

import (
	"net/http"

	"github.com/growthloop/matrixpay-backend/api/middleware"
	"github.com/growthloop/matrixpay-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if code := middleware.MemberCodeFromContext(r.Context()); code != "" {
			payload["member_code"] = code
		}
		responses.WriteSuccess(w, payload)
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "admin", "status": "ok"}
		if code := middleware.MemberCodeFromContext(r.Context()); code != "" {
			payload["member_code"] = code
		}
		responses.WriteSuccess(w, payload)
	}
}
