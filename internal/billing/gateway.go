package billing

import (
	"context"

	"github.com/stripe/stripe-go/v84"
)

// Gateway exposes the subset of Stripe operations the billing service needs.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}
