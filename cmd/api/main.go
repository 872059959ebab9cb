package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/avermeer/teambase-backend/api/routes"
	"github.com/avermeer/teambase-backend/internal/accounts"
	"github.com/avermeer/teambase-backend/internal/auth"
	billingsvc "github.com/avermeer/teambase-backend/internal/billing"
	"github.com/avermeer/teambase-backend/internal/invitations"
	"github.com/avermeer/teambase-backend/internal/memberships"
	"github.com/avermeer/teambase-backend/internal/users"
	stripewebhook "github.com/avermeer/teambase-backend/internal/webhooks/stripe"
	"github.com/avermeer/teambase-backend/pkg/auth/session"
	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/db"
	"github.com/avermeer/teambase-backend/pkg/logger"
	"github.com/avermeer/teambase-backend/pkg/migrate"
	"github.com/avermeer/teambase-backend/pkg/outbox"
	"github.com/avermeer/teambase-backend/pkg/redis"
	pkgstripe "github.com/avermeer/teambase-backend/pkg/stripe"
)

const (
	webhookDedupTTL = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	accountsRepo := accounts.NewRepository(dbClient.DB())
	membershipsRepo := memberships.NewRepository(dbClient.DB())
	invitationsRepo := invitations.NewRepository(dbClient.DB())
	billingRepo := billingsvc.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:        usersRepo,
		MembershipsRepo: membershipsRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		UserRepo:       usersRepo,
		AccountRepo:    accountsRepo,
		MembershipRepo: membershipsRepo,
		TxRunner:       dbClient,
		Emitter:        emitter,
		SessionManager: sessionManager,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	accountsService, err := accounts.NewService(accountsRepo, membershipsRepo, dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	membershipsService, err := memberships.NewService(membershipsRepo, dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create membership service", err)
		os.Exit(1)
	}

	invitationsService, err := invitations.NewService(invitationsRepo, membershipsRepo, usersRepo, dbClient, emitter, cfg.Invitations)
	if err != nil {
		logg.Error(context.Background(), "failed to create invitation service", err)
		os.Exit(1)
	}

	billingService, err := billingsvc.NewService(billingsvc.ServiceParams{
		Repo:            billingRepo,
		MembershipsRepo: membershipsRepo,
		UsersRepo:       usersRepo,
		Gateway:         billingsvc.NewStripeGateway(stripeClient),
		Catalog:         catalog,
		AppBaseURL:      cfg.App.BaseURL,
		Billing:         cfg.Billing,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		BillingRepo:       billingRepo,
		Catalog:           catalog,
		TransactionRunner: dbClient,
		Emitter:           emitter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookDedupTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.RouterParams{
		Config:  cfg,
		Logger:  logg,
		DB:      dbClient,
		Redis:   redisClient,
		Session: sessionManager,

		AuthService:        authService,
		RegisterService:    registerService,
		AccountsService:    accountsService,
		MembershipsService: membershipsService,
		InvitationsService: invitationsService,
		BillingService:     billingService,
		Catalog:            catalog,

		StripeClient:   stripeClient,
		WebhookService: webhookService,
		WebhookGuard:   webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "error shutting down api server", err)
		}
	}()

	logg.Info(ctx, "starting api server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
