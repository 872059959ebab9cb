package billing

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avermeer/teambase-backend/api/middleware"
	"github.com/avermeer/teambase-backend/api/responses"
	"github.com/avermeer/teambase-backend/api/validators"
	billingsvc "github.com/avermeer/teambase-backend/internal/billing"
	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/logger"
)

type planResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Interval     enums.BillingInterval `json:"interval"`
	Type         enums.LineItemType    `json:"type,omitempty"`
	PriceAmount  decimal.Decimal       `json:"price_amount"`
	CurrencyCode string                `json:"currency_code"`
	TrialDays    int                   `json:"trial_days"`
	Features     []string              `json:"features,omitempty"`
}

type productResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Plans []planResponse `json:"plans"`
}

// Plans exposes the static catalog. Stripe identifiers are stripped;
// clients only ever see plan ids.
func Plans(catalog *catalogpkg.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if catalog == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing catalog unavailable"))
			return
		}

		products := make([]productResponse, 0, len(catalog.Products))
		for _, product := range catalog.Products {
			plans := make([]planResponse, 0, len(product.Plans))
			for _, plan := range product.Plans {
				plans = append(plans, planResponse{
					ID:           plan.ID,
					Name:         plan.Name,
					Interval:     plan.Interval,
					Type:         plan.Type,
					PriceAmount:  plan.PriceAmount,
					CurrencyCode: plan.CurrencyCode,
					TrialDays:    plan.TrialDays,
					Features:     plan.Features,
				})
			}
			products = append(products, productResponse{
				ID:    product.ID,
				Name:  product.Name,
				Plans: plans,
			})
		}

		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// CheckoutCreate opens an embedded checkout session for the selected plan.
func CheckoutCreate(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		accountID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "accountId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		var body billingsvc.CreateCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.CreateCheckoutSession(ctx, userID, accountID, body.PlanID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutStatus reports whether an embedded checkout session completed.
// The frontend polls this on its return page.
func CheckoutStatus(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id required"))
			return
		}

		status, err := svc.RetrieveCheckoutSession(ctx, userID, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// PortalCreate opens a billing portal session for the account's customer.
func PortalCreate(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		accountID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "accountId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		session, err := svc.CreateBillingPortalSession(ctx, userID, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// SubscriptionFetch returns the locally mirrored subscription for the account.
func SubscriptionFetch(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		accountID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "accountId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		subscription, err := svc.GetSubscription(ctx, userID, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"subscription": subscription})
	}
}
