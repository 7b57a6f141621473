package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/growthloop/matrixpay-backend/api/responses"
	"github.com/growthloop/matrixpay-backend/pkg/config"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MatrixPay-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the hard dependencies. A failing dependency flips the
// readiness payload but still returns 200 so orchestrators can read details.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		checks["database"] = checkDependency(ctx, logg, "database", db, &ready)
		checks["redis"] = checkDependency(ctx, logg, "redis", cache, &ready)

		status := "ready"
		if !ready {
			status = "degraded"
		}

		w.Header().Set("X-MatrixPay-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

func checkDependency(ctx context.Context, logg *logger.Logger, name string, p pinger, ready *bool) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		*ready = false
		if logg != nil {
			logg.Error(ctx, "readiness check failed: "+name, err)
		}
		return "down"
	}
	return "up"
}
