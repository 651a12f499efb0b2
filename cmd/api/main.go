package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/talentbridge/talentbridge-backend/api/routes"
	"github.com/talentbridge/talentbridge-backend/internal/commissions"
	"github.com/talentbridge/talentbridge-backend/internal/consultants"
	"github.com/talentbridge/talentbridge-backend/internal/ledger"
	"github.com/talentbridge/talentbridge-backend/internal/lockset"
	"github.com/talentbridge/talentbridge-backend/internal/pricing"
	"github.com/talentbridge/talentbridge-backend/internal/withdrawals"
	"github.com/talentbridge/talentbridge-backend/pkg/config"
	"github.com/talentbridge/talentbridge-backend/pkg/db"
	"github.com/talentbridge/talentbridge-backend/pkg/instance"
	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/metrics"
	"github.com/talentbridge/talentbridge-backend/pkg/migrate"
	"github.com/talentbridge/talentbridge-backend/pkg/outbox"
	"github.com/talentbridge/talentbridge-backend/pkg/redis"
	"github.com/talentbridge/talentbridge-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := metrics.NewRegistry()
	workflowMetrics := metrics.NewWorkflowMetrics(registry)
	notifier := outbox.NewService(dbClient.DB(), outbox.NewRepository(dbClient.DB()), logg, metrics.NewOutboxMetrics(registry))

	sealer, err := security.NewSealer(cfg.Sealing)
	if err != nil {
		logg.Error(ctx, "failed to create payment details sealer", err)
		os.Exit(1)
	}

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:            ledgerRepo,
		TxRunner:        dbClient,
		Logger:          logg,
		Metrics:         metrics.NewLedgerMetrics(registry),
		DefaultCurrency: cfg.Earnings.DefaultCurrency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	consultantRepo := consultants.NewRepository(dbClient.DB())
	resolver, err := pricing.NewResolver(pricing.ResolverParams{
		Consultants:     consultantRepo,
		Ledger:          ledgerRepo,
		DefaultRate:     cfg.Earnings.DefaultRate(),
		DefaultCurrency: cfg.Earnings.DefaultCurrency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create pricing resolver", err)
		os.Exit(1)
	}

	locks := lockset.NewRepository(dbClient.DB())
	commissionRepo := commissions.NewRepository(dbClient.DB())
	commissionService, err := commissions.NewService(commissions.ServiceParams{
		Repo:            commissionRepo,
		Ledger:          ledgerService,
		Pricing:         resolver,
		Consultants:     consultantRepo,
		Locks:           locks,
		TxRunner:        dbClient,
		Notifier:        notifier,
		Logger:          logg,
		Metrics:         workflowMetrics,
		DefaultCurrency: cfg.Earnings.DefaultCurrency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create commission service", err)
		os.Exit(1)
	}

	withdrawalService, err := withdrawals.NewService(withdrawals.ServiceParams{
		Repo:            withdrawals.NewRepository(dbClient.DB()),
		Commissions:     commissionRepo,
		Locks:           locks,
		Ledger:          ledgerService,
		Sealer:          sealer,
		TxRunner:        dbClient,
		Notifier:        notifier,
		Logger:          logg,
		Metrics:         workflowMetrics,
		DefaultCurrency: cfg.Earnings.DefaultCurrency,
	})
	if err != nil {
		logg.Error(ctx, "failed to create withdrawal service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Store:       redisClient,
			Gatherer:    registry,
			Ledger:      ledgerService,
			Commissions: commissionService,
			Withdrawals: withdrawalService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
