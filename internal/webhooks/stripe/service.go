package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/internal/billing"
	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams bundles the webhook handler dependencies.
type ServiceParams struct {
	BillingRepo       billing.Repository
	Catalog           *catalogpkg.Catalog
	TransactionRunner txRunner
	Emitter           outboxEmitter
}

// Service reconciles local billing mirrors from gateway events. The gateway
// stays the system of record; every handler here is idempotent.
type Service struct {
	billingRepo billing.Repository
	catalog     *catalogpkg.Catalog
	txRunner    txRunner
	emitter     outboxEmitter
}

func NewService(params ServiceParams) (*Service, error) {
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &Service{
		billingRepo: params.BillingRepo,
		catalog:     params.Catalog,
		txRunner:    params.TransactionRunner,
		emitter:     params.Emitter,
	}, nil
}

// HandleEvent dispatches a verified gateway event. Unrecognized event types
// are acknowledged without action.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout event")
		}
		return s.linkBillingCustomer(ctx, &session)
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.SyncSubscription(ctx, &stripeSub)
	default:
		return nil
	}
}

// linkBillingCustomer records the account to gateway-customer mapping once a
// checkout completes. client_reference_id carries the account id set at
// session creation.
func (s *Service) linkBillingCustomer(ctx context.Context, session *stripe.CheckoutSession) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session is required")
	}
	accountID, err := uuid.Parse(strings.TrimSpace(session.ClientReferenceID))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid client reference id")
	}
	if session.Customer == nil || session.Customer.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no customer")
	}

	var email *string
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		value := session.CustomerDetails.Email
		email = &value
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)
		if err := repo.UpsertBillingCustomer(ctx, &models.BillingCustomer{
			AccountID:  accountID,
			CustomerID: session.Customer.ID,
			Email:      email,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert billing customer")
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBillingCustomerLinked,
			AggregateType: enums.AggregateAccount,
			AggregateID:   accountID,
			Data: map[string]any{
				"account_id":  accountID,
				"customer_id": session.Customer.ID,
			},
			Version: 1,
		})
	})
}

// SyncSubscription upserts the local mirror from the gateway payload.
func (s *Service) SyncSubscription(ctx context.Context, stripeSub *stripe.Subscription) error {
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.billingRepo.WithTx(tx)

		stored, err := repo.FindSubscriptionByStripeID(ctx, stripeSub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
		}

		accountID, err := s.resolveAccountID(ctx, repo, stripeSub, stored)
		if err != nil {
			return err
		}

		var synced *models.Subscription
		if stored == nil {
			built, buildErr := buildSubscription(stripeSub, accountID)
			if buildErr != nil {
				return buildErr
			}
			if err := repo.CreateSubscription(ctx, built); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription mirror")
			}
			synced = built
		} else {
			if err := applySubscription(stored, stripeSub); err != nil {
				return err
			}
			if err := repo.UpdateSubscription(ctx, stored); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription mirror")
			}
			synced = stored
		}

		items := itemsFromStripe(stripeSub, s.catalog)
		if err := repo.ReplaceSubscriptionItems(ctx, synced.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace subscription items")
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionSynced,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   synced.ID,
			Data: map[string]any{
				"account_id":             accountID,
				"stripe_subscription_id": synced.StripeSubscriptionID,
				"status":                 synced.Status,
				"active":                 synced.Active,
			},
			Version: 1,
		})
	})
}

// resolveAccountID works out which account a gateway subscription belongs
// to: metadata first, then the stored mirror, then the customer mapping.
func (s *Service) resolveAccountID(ctx context.Context, repo billing.Repository, stripeSub *stripe.Subscription, stored *models.Subscription) (uuid.UUID, error) {
	if id, err := accountIDFromMetadata(stripeSub.Metadata); err == nil {
		return id, nil
	}
	if stored != nil {
		return stored.AccountID, nil
	}
	if stripeSub.Customer != nil && stripeSub.Customer.ID != "" {
		customer, err := repo.FindBillingCustomerByCustomerID(ctx, stripeSub.Customer.ID)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup billing customer")
		}
		if customer != nil {
			return customer.AccountID, nil
		}
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot resolve account for subscription")
}
