package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/growthloop/matrixpay-backend/api/controllers"
	webhookcontrollers "github.com/growthloop/matrixpay-backend/api/controllers/webhooks"
	"github.com/growthloop/matrixpay-backend/api/middleware"
	"github.com/growthloop/matrixpay-backend/internal/catalog"
	"github.com/growthloop/matrixpay-backend/internal/ledger"
	"github.com/growthloop/matrixpay-backend/internal/members"
	"github.com/growthloop/matrixpay-backend/internal/payments"
	gatewaywebhook "github.com/growthloop/matrixpay-backend/internal/webhooks/gateway"
	"github.com/growthloop/matrixpay-backend/pkg/config"
	"github.com/growthloop/matrixpay-backend/pkg/db"
	"github.com/growthloop/matrixpay-backend/pkg/gateway"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
	"github.com/growthloop/matrixpay-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatewayClient *gateway.Client,
	membersService members.Service,
	catalogService catalog.Service,
	ledgerService ledger.Service,
	paymentsService payments.Service,
	gatewayWebhookService *gatewaywebhook.Service,
	gatewayWebhookGuard *gatewaywebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	paymentPolicy := middleware.NewRateLimitPolicy(
		"payments",
		cfg.RateLimit.PaymentWindow,
		cfg.RateLimit.PaymentIPLimit,
		cfg.RateLimit.PaymentMemberLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayWebhook(gatewayWebhookService, gatewayClient, gatewayWebhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/tiers", func(r chi.Router) {
			r.Get("/", controllers.TierList(catalogService, logg))
			r.Get("/{tierName}", controllers.TierDetail(catalogService, logg))
		})

		r.Route("/v1/ledger", func(r chi.Router) {
			r.Get("/", controllers.LedgerSnapshot(ledgerService, logg))
			r.Get("/entries", controllers.LedgerEntries(ledgerService, logg))
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.With(middleware.RateLimit(paymentPolicy, redisClient, logg)).
				Post("/", controllers.PaymentInitiate(paymentsService, logg))
			r.Get("/", controllers.PaymentList(paymentsService, logg))
			r.Get("/{paymentId}", controllers.PaymentDetail(paymentsService, logg))
		})

		// Platform provisioning hook, driven by the account system rather than members themselves.
		r.With(middleware.RequireRole("admin", logg)).
			Post("/v1/members", controllers.MemberCreatedHook(membersService, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/v1/tiers", func(r chi.Router) {
			r.Post("/", controllers.AdminTierUpsert(catalogService, logg))
			r.Put("/{tierName}", controllers.AdminTierUpsert(catalogService, logg))
		})

		r.Route("/v1/members/{memberCode}", func(r chi.Router) {
			r.Get("/", controllers.MemberDetail(membersService, logg))
			r.Get("/ledger", controllers.AdminMemberLedger(ledgerService, logg))
		})

		r.Post("/v1/ledger-entries/{userLevelId}/status", controllers.AdminSetLedgerStatus(paymentsService, logg))
	})

	return r
}
