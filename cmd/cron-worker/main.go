package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	billingsvc "github.com/avermeer/teambase-backend/internal/billing"
	"github.com/avermeer/teambase-backend/internal/cron"
	"github.com/avermeer/teambase-backend/internal/invitations"
	stripewebhook "github.com/avermeer/teambase-backend/internal/webhooks/stripe"
	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/db"
	"github.com/avermeer/teambase-backend/pkg/logger"
	"github.com/avermeer/teambase-backend/pkg/metrics"
	"github.com/avermeer/teambase-backend/pkg/migrate"
	"github.com/avermeer/teambase-backend/pkg/outbox"
	"github.com/avermeer/teambase-backend/pkg/redis"
	pkgstripe "github.com/avermeer/teambase-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	catalog, err := catalogpkg.LoadCatalog(cfg.Billing.CatalogPath)
	if err != nil {
		logg.Error(context.Background(), "failed to load billing catalog", err)
		os.Exit(1)
	}

	billingRepo := billingsvc.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outboxRepo, logg)

	syncer, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		BillingRepo:       billingRepo,
		Catalog:           catalog,
		TransactionRunner: dbClient,
		Emitter:           emitter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription syncer", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewSubscriptionReconcileJob(cron.SubscriptionReconcileJobParams{
		Logger:      logg,
		BillingRepo: billingRepo,
		Gateway:     billingsvc.NewStripeGateway(stripeClient),
		Syncer:      syncer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription reconcile job", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewInvitationExpiryJob(cron.InvitationExpiryJobParams{
		Logger:     logg,
		Repository: invitations.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invitation expiry job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(reconcileJob, expiryJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
