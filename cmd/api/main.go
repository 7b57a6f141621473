package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/growthloop/matrixpay-backend/api/routes"
	"github.com/growthloop/matrixpay-backend/internal/caps"
	"github.com/growthloop/matrixpay-backend/internal/catalog"
	"github.com/growthloop/matrixpay-backend/internal/ledger"
	"github.com/growthloop/matrixpay-backend/internal/members"
	"github.com/growthloop/matrixpay-backend/internal/payments"
	"github.com/growthloop/matrixpay-backend/internal/upline"
	gatewaywebhook "github.com/growthloop/matrixpay-backend/internal/webhooks/gateway"
	"github.com/growthloop/matrixpay-backend/pkg/config"
	"github.com/growthloop/matrixpay-backend/pkg/db"
	"github.com/growthloop/matrixpay-backend/pkg/gateway"
	"github.com/growthloop/matrixpay-backend/pkg/logger"
	"github.com/growthloop/matrixpay-backend/pkg/metrics"
	"github.com/growthloop/matrixpay-backend/pkg/migrate"
	"github.com/growthloop/matrixpay-backend/pkg/outbox"
	"github.com/growthloop/matrixpay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	membersRepo := members.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	uplineResolver, err := upline.NewResolver(upline.Config{
		AdminCode:      cfg.Matrix.AdminCode,
		FallbackPrefix: cfg.Matrix.FallbackPrefix,
	}, membersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create upline resolver", err)
		os.Exit(1)
	}

	capsService, err := caps.NewService(caps.ServiceParams{
		Config:  caps.Config{FallbackPrefix: cfg.Matrix.FallbackPrefix},
		Ledgers: ledgerRepo,
		Members: membersRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create caps service", err)
		os.Exit(1)
	}

	membersService, err := members.NewService(members.ServiceParams{
		Repo:     membersRepo,
		Ledgers:  ledgerRepo,
		Catalog:  catalogRepo,
		Resolver: uplineResolver,
		TxRunner: dbClient,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create members service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:       catalogRepo,
		Retargeter: ledgerRepo,
		TxRunner:   dbClient,
		Outbox:     outboxService,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:   ledgerRepo,
		Caps:   capsService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:        paymentsRepo,
		Ledgers:     ledgerRepo,
		Caps:        capsService,
		Eligibility: membersService,
		Gateway:     gatewayClient,
		TxRunner:    dbClient,
		Outbox:      outboxService,
		Metrics:     metrics.NewEngineMetrics(prometheus.DefaultRegisterer),
		PINConfig:   cfg.PIN,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	gatewayWebhookService, err := gatewaywebhook.NewService(gatewaywebhook.ServiceParams{
		Payments: paymentsService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway webhook service", err)
		os.Exit(1)
	}

	gatewayWebhookGuard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, "gateway-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			gatewayClient,
			membersService,
			catalogService,
			ledgerService,
			paymentsService,
			gatewayWebhookService,
			gatewayWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
