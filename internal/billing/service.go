package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
)

type membershipsRepository interface {
	GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error)
}

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service exposes the checkout and portal surface. All local state is
// read-only here; the mirror is written by webhooks and the reconcile job.
type Service interface {
	CreateCheckoutSession(ctx context.Context, userID, accountID uuid.UUID, planID string) (*CheckoutSessionDTO, error)
	RetrieveCheckoutSession(ctx context.Context, userID uuid.UUID, sessionID string) (*CheckoutStatusDTO, error)
	CreateBillingPortalSession(ctx context.Context, userID, accountID uuid.UUID) (*PortalSessionDTO, error)
	GetSubscription(ctx context.Context, userID, accountID uuid.UUID) (*SubscriptionDTO, error)
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo            Repository
	MembershipsRepo membershipsRepository
	UsersRepo       usersRepository
	Gateway         Gateway
	Catalog         *catalogpkg.Catalog
	AppBaseURL      string
	Billing         config.BillingConfig
}

type service struct {
	repo        Repository
	memberships membershipsRepository
	users       usersRepository
	gateway     Gateway
	catalog     *catalogpkg.Catalog
	checkoutURL string
	portalURL   string
}

// NewService builds a billing service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("billing repo required")
	}
	if params.MembershipsRepo == nil {
		return nil, fmt.Errorf("memberships repo required")
	}
	if params.UsersRepo == nil {
		return nil, fmt.Errorf("users repo required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("billing gateway required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("plan catalog required")
	}

	checkoutURL, err := params.Billing.CheckoutReturnURL(params.AppBaseURL)
	if err != nil {
		return nil, fmt.Errorf("checkout return url: %w", err)
	}
	portalURL, err := params.Billing.PortalReturnURL(params.AppBaseURL)
	if err != nil {
		return nil, fmt.Errorf("portal return url: %w", err)
	}

	return &service{
		repo:        params.Repo,
		memberships: params.MembershipsRepo,
		users:       params.UsersRepo,
		gateway:     params.Gateway,
		catalog:     params.Catalog,
		checkoutURL: checkoutURL + "?session_id={CHECKOUT_SESSION_ID}",
		portalURL:   portalURL,
	}, nil
}

func (s *service) CreateCheckoutSession(ctx context.Context, userID, accountID uuid.UUID, planID string) (*CheckoutSessionDTO, error) {
	if err := s.requireMembership(ctx, userID, accountID); err != nil {
		return nil, err
	}

	// Resolve the plan before touching the gateway so a bad plan id never
	// costs a network call.
	pair, ok := s.catalog.FindPlan(strings.TrimSpace(planID))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	params := &stripe.CheckoutSessionParams{
		UIMode:            stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ReturnURL:         stripe.String(s.checkoutURL),
		ClientReferenceID: stripe.String(accountID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(pair.Plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"account_id": accountID.String(),
			"plan_id":    pair.Plan.ID,
		},
	}
	if pair.Plan.TrialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(int64(pair.Plan.TrialDays)),
		}
	}

	customer, err := s.repo.FindBillingCustomerByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup billing customer")
	}
	if customer != nil {
		params.Customer = stripe.String(customer.CustomerID)
	} else {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		params.CustomerEmail = stripe.String(user.Email)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, wrapGatewayErr(err, "create checkout session")
	}

	return &CheckoutSessionDTO{CheckoutToken: session.ClientSecret}, nil
}

func (s *service) RetrieveCheckoutSession(ctx context.Context, userID uuid.UUID, sessionID string) (*CheckoutStatusDTO, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, wrapGatewayErr(err, "retrieve checkout session")
	}

	if session.Status == stripe.CheckoutSessionStatusOpen {
		return &CheckoutStatusDTO{
			Status:        string(session.Status),
			CheckoutToken: session.ClientSecret,
		}, nil
	}

	dto := &CheckoutStatusDTO{Status: string(session.Status)}
	if session.CustomerDetails != nil {
		dto.CustomerEmail = session.CustomerDetails.Email
	}
	return dto, nil
}

func (s *service) CreateBillingPortalSession(ctx context.Context, userID, accountID uuid.UUID) (*PortalSessionDTO, error) {
	if err := s.requireMembership(ctx, userID, accountID); err != nil {
		return nil, err
	}

	customer, err := s.repo.FindBillingCustomerByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup billing customer")
	}
	if customer == nil {
		// No gateway call without a customer on file.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no billing customer for this account")
	}

	session, err := s.gateway.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customer.CustomerID),
		ReturnURL: stripe.String(s.portalURL),
	})
	if err != nil {
		return nil, wrapGatewayErr(err, "create billing portal session")
	}

	return &PortalSessionDTO{URL: session.URL}, nil
}

func (s *service) GetSubscription(ctx context.Context, userID, accountID uuid.UUID) (*SubscriptionDTO, error) {
	if err := s.requireMembership(ctx, userID, accountID); err != nil {
		return nil, err
	}

	sub, err := s.repo.FindSubscriptionByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription for this account")
	}

	items, err := s.repo.ListSubscriptionItems(ctx, sub.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscription items")
	}

	return ToSubscriptionDTO(sub, items), nil
}

func (s *service) requireMembership(ctx context.Context, userID, accountID uuid.UUID) error {
	if _, err := s.memberships.GetMembership(ctx, userID, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this account")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return nil
}

// wrapGatewayErr maps Stripe's resource_missing to a local not-found and
// everything else to a dependency failure.
func wrapGatewayErr(err error, msg string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg+": not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
