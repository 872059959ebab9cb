package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avermeer/teambase-backend/api/controllers"
	authcontrollers "github.com/avermeer/teambase-backend/api/controllers/auth"
	billingcontrollers "github.com/avermeer/teambase-backend/api/controllers/billing"
	webhookcontrollers "github.com/avermeer/teambase-backend/api/controllers/webhooks"
	"github.com/avermeer/teambase-backend/api/middleware"
	"github.com/avermeer/teambase-backend/internal/accounts"
	"github.com/avermeer/teambase-backend/internal/auth"
	billingsvc "github.com/avermeer/teambase-backend/internal/billing"
	"github.com/avermeer/teambase-backend/internal/invitations"
	"github.com/avermeer/teambase-backend/internal/memberships"
	stripewebhook "github.com/avermeer/teambase-backend/internal/webhooks/stripe"
	"github.com/avermeer/teambase-backend/pkg/auth/session"
	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/db"
	"github.com/avermeer/teambase-backend/pkg/logger"
	"github.com/avermeer/teambase-backend/pkg/redis"
	"github.com/avermeer/teambase-backend/pkg/stripe"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   redis.Pinger
	Session session.AccessSessionChecker

	AuthService        auth.Service
	RegisterService    auth.RegisterService
	AccountsService    accounts.Service
	MembershipsService memberships.Service
	InvitationsService invitations.Service
	BillingService     billingsvc.Service
	Catalog            *catalogpkg.Catalog

	StripeClient   *stripe.Client
	WebhookService *stripewebhook.Service
	WebhookGuard   *stripewebhook.IdempotencyGuard
}

// NewRouter assembles the full route table with the shared middleware chain.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.BaseURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.WebhookService, p.StripeClient, p.WebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", authcontrollers.Register(p.RegisterService, logg))
		r.Post("/login", authcontrollers.Login(p.AuthService, logg))
		r.Post("/refresh", authcontrollers.Refresh(p.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, p.Session, logg)).Post("/logout", authcontrollers.Logout(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Session, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", controllers.AccountList(p.MembershipsService, logg))
			r.Post("/", controllers.AccountCreate(p.AccountsService, logg))

			r.Route("/{accountId}", func(r chi.Router) {
				r.Get("/", controllers.AccountDetail(p.AccountsService, logg))
				r.Patch("/", controllers.AccountUpdate(p.AccountsService, logg))

				r.Route("/members", func(r chi.Router) {
					r.Get("/", controllers.MemberList(p.MembershipsService, logg))
					r.Patch("/{userId}", controllers.MemberUpdateRole(p.MembershipsService, logg))
					r.Delete("/{userId}", controllers.MemberRemove(p.MembershipsService, logg))
				})

				r.Route("/invitations", func(r chi.Router) {
					r.Get("/", controllers.InvitationList(p.InvitationsService, logg))
					r.Post("/", controllers.InvitationCreate(p.InvitationsService, logg))
				})

				r.Route("/billing", func(r chi.Router) {
					r.Post("/checkout", billingcontrollers.CheckoutCreate(p.BillingService, logg))
					r.Post("/portal", billingcontrollers.PortalCreate(p.BillingService, logg))
					r.Get("/subscription", billingcontrollers.SubscriptionFetch(p.BillingService, logg))
				})
			})
		})

		r.Route("/invitations/{invitationId}", func(r chi.Router) {
			r.Patch("/", controllers.InvitationUpdate(p.InvitationsService, logg))
			r.Delete("/", controllers.InvitationDelete(p.InvitationsService, logg))
			r.Post("/accept", controllers.InvitationAccept(p.InvitationsService, logg))
		})

		r.Route("/billing", func(r chi.Router) {
			r.Get("/plans", billingcontrollers.Plans(p.Catalog, logg))
			r.Get("/checkout/{sessionId}", billingcontrollers.CheckoutStatus(p.BillingService, logg))
		})
	})

	return r
}
