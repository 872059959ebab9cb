package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/api/middleware"
	billingsvc "github.com/avermeer/teambase-backend/internal/billing"
	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
)

const testCatalogJSON = `{
  "products": [
    {
      "id": "team",
      "name": "Team",
      "stripe_product_id": "prod_team",
      "plans": [
        {
          "id": "team-monthly",
          "name": "Team Monthly",
          "stripe_price_id": "price_team_monthly",
          "interval": "month",
          "price_amount": "29.00",
          "currency_code": "usd",
          "trial_days": 14,
          "features": ["unlimited members"]
        }
      ]
    }
  ]
}`

type stubBillingService struct {
	checkoutPlan    string
	checkoutAccount uuid.UUID
	session         *billingsvc.CheckoutSessionDTO
	status          *billingsvc.CheckoutStatusDTO
	subscription    *billingsvc.SubscriptionDTO
}

func (s *stubBillingService) CreateCheckoutSession(ctx context.Context, userID, accountID uuid.UUID, planID string) (*billingsvc.CheckoutSessionDTO, error) {
	s.checkoutAccount = accountID
	s.checkoutPlan = planID
	return s.session, nil
}

func (s *stubBillingService) RetrieveCheckoutSession(ctx context.Context, userID uuid.UUID, sessionID string) (*billingsvc.CheckoutStatusDTO, error) {
	return s.status, nil
}

func (s *stubBillingService) CreateBillingPortalSession(ctx context.Context, userID, accountID uuid.UUID) (*billingsvc.PortalSessionDTO, error) {
	return &billingsvc.PortalSessionDTO{URL: "https://billing.stripe.com/p/session"}, nil
}

func (s *stubBillingService) GetSubscription(ctx context.Context, userID, accountID uuid.UUID) (*billingsvc.SubscriptionDTO, error) {
	return s.subscription, nil
}

func testCatalog(t *testing.T) *catalogpkg.Catalog {
	t.Helper()
	catalog, err := catalogpkg.ParseCatalog([]byte(testCatalogJSON))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return catalog
}

func TestPlans_OmitsStripeIdentifiers(t *testing.T) {
	handler := Plans(testCatalog(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if strings.Contains(body, "price_team_monthly") || strings.Contains(body, "prod_team") {
		t.Fatalf("stripe identifiers leaked in plan listing: %s", body)
	}

	var envelope struct {
		Data struct {
			Products []productResponse `json:"products"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Products) != 1 || len(envelope.Data.Products[0].Plans) != 1 {
		t.Fatalf("unexpected catalog shape: %+v", envelope.Data)
	}
	plan := envelope.Data.Products[0].Plans[0]
	if plan.ID != "team-monthly" || plan.TrialDays != 14 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestCheckoutCreate_PassesPlanAndAccount(t *testing.T) {
	accountID := uuid.New()
	svc := &stubBillingService{session: &billingsvc.CheckoutSessionDTO{CheckoutToken: "cs_secret"}}

	r := chi.NewRouter()
	r.Post("/accounts/{accountId}/billing/checkout", CheckoutCreate(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/accounts/"+accountID.String()+"/billing/checkout", strings.NewReader(`{"plan_id":"team-monthly"}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.checkoutPlan != "team-monthly" {
		t.Fatalf("expected plan team-monthly, got %q", svc.checkoutPlan)
	}
	if svc.checkoutAccount != accountID {
		t.Fatalf("expected account %s, got %s", accountID, svc.checkoutAccount)
	}
}

func TestCheckoutCreate_RequiresPlan(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/accounts/{accountId}/billing/checkout", CheckoutCreate(&stubBillingService{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/accounts/"+uuid.NewString()+"/billing/checkout", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing plan id, got %d", rec.Code)
	}
}

func TestSubscriptionFetch_RequiresUser(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/accounts/{accountId}/billing/subscription", SubscriptionFetch(&stubBillingService{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/accounts/"+uuid.NewString()+"/billing/subscription", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context, got %d", rec.Code)
	}
}
