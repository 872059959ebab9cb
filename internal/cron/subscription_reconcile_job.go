package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/logger"
)

const (
	defaultReconcileLimit    = 250
	defaultReconcileLookback = 7 * 24 * time.Hour
)

type reconcileRepository interface {
	ListSubscriptionsForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Subscription, error)
}

type subscriptionGateway interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type subscriptionSyncer interface {
	SyncSubscription(ctx context.Context, sub *stripe.Subscription) error
}

// SubscriptionReconcileJobParams configures the subscription sync cron job.
type SubscriptionReconcileJobParams struct {
	Logger      *logger.Logger
	BillingRepo reconcileRepository
	Gateway     subscriptionGateway
	Syncer      subscriptionSyncer
	Limit       int
	Lookback    time.Duration
}

// NewSubscriptionReconcileJob builds a job that re-reads recently active
// subscriptions from the payment gateway and refreshes the local mirrors,
// catching webhook deliveries that were lost or arrived out of order.
func NewSubscriptionReconcileJob(params SubscriptionReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.BillingRepo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("billing gateway required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("subscription syncer required")
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = defaultReconcileLookback
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	return &subscriptionReconcileJob{
		logg:        params.Logger,
		billingRepo: params.BillingRepo,
		gateway:     params.Gateway,
		syncer:      params.Syncer,
		limit:       limit,
		lookback:    lookback,
	}, nil
}

type subscriptionReconcileJob struct {
	logg        *logger.Logger
	billingRepo reconcileRepository
	gateway     subscriptionGateway
	syncer      subscriptionSyncer
	limit       int
	lookback    time.Duration
}

func (j *subscriptionReconcileJob) Name() string { return "subscription-reconcile" }

func (j *subscriptionReconcileJob) Run(ctx context.Context) error {
	snapshot, err := j.billingRepo.ListSubscriptionsForReconciliation(ctx, j.limit, j.lookback)
	if err != nil {
		return fmt.Errorf("list subscriptions for reconciliation: %w", err)
	}
	var errs error
	synced := 0
	for i := range snapshot {
		if err := j.reconcileSubscription(ctx, &snapshot[i]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		synced++
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(snapshot),
		"synced":     synced,
	})
	j.logg.Info(reportCtx, "subscription reconcile loop complete")
	return errs
}

func (j *subscriptionReconcileJob) reconcileSubscription(ctx context.Context, sub *models.Subscription) error {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"subscription_id":        sub.ID,
		"account_id":             sub.AccountID,
		"stripe_subscription_id": sub.StripeSubscriptionID,
	})
	remote, err := j.gateway.GetSubscription(logCtx, sub.StripeSubscriptionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			j.logg.Info(logCtx, "subscription no longer exists at gateway; skipping")
			return nil
		}
		return fmt.Errorf("fetch subscription %s: %w", sub.StripeSubscriptionID, err)
	}
	if remote == nil {
		j.logg.Info(logCtx, "gateway returned no subscription; skipping")
		return nil
	}
	if err := j.syncer.SyncSubscription(logCtx, remote); err != nil {
		return fmt.Errorf("sync subscription %s: %w", sub.StripeSubscriptionID, err)
	}
	successCtx := j.logg.WithField(logCtx, "status", string(remote.Status))
	j.logg.Info(successCtx, "subscription reconciled")
	return nil
}
