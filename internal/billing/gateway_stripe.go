package billing

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/subscription"

	pkgstripe "github.com/avermeer/teambase-backend/pkg/stripe"
)

type stripeGateway struct{}

// NewStripeGateway wraps the initialized Stripe client so the billing
// service can be tested against a stub.
func NewStripeGateway(api *pkgstripe.Client) Gateway {
	if api == nil {
		return nil
	}
	return &stripeGateway{}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return checkoutsession.New(params)
}

func (g *stripeGateway) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	return checkoutsession.Get(id, params)
}

func (g *stripeGateway) CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return portalsession.New(params)
}

func (g *stripeGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return subscription.Get(id, params)
}
