package stripewebhook

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	catalogpkg "github.com/avermeer/teambase-backend/pkg/billing"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
)

// accountIDFromMetadata extracts the account ID that checkout attached to
// the subscription's metadata.
func accountIDFromMetadata(metadata map[string]string) (uuid.UUID, error) {
	raw, ok := metadata["account_id"]
	if !ok || strings.TrimSpace(raw) == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "account_id missing from metadata")
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account_id metadata")
	}
	return id, nil
}

// buildSubscription maps a gateway subscription into the canonical mirror row.
func buildSubscription(stripeSub *stripe.Subscription, accountID uuid.UUID) (*models.Subscription, error) {
	if stripeSub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe subscription is nil")
	}
	target := &models.Subscription{
		AccountID:            accountID,
		StripeSubscriptionID: stripeSub.ID,
	}
	if err := applySubscription(target, stripeSub); err != nil {
		return nil, err
	}
	return target, nil
}

// applySubscription mutates the mirror row with fresh gateway data.
func applySubscription(target *models.Subscription, stripeSub *stripe.Subscription) error {
	if target == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "target subscription is nil")
	}
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "stripe subscription is nil")
	}

	status, err := enums.ParseSubscriptionStatus(string(stripeSub.Status))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid stripe subscription status")
	}

	metadata, err := marshalMetadata(stripeSub.Metadata)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal metadata")
	}

	startTS, endTS := periodFromItems(stripeSub)

	target.StripeSubscriptionID = stripeSub.ID
	target.Status = status
	target.Active = status.IsActive()
	target.Currency = string(stripeSub.Currency)
	target.CurrentPeriodStart = toTimePtr(startTS)
	target.CurrentPeriodEnd = toTime(endTS)
	target.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd
	target.CanceledAt = toTimePtr(stripeSub.CanceledAt)
	target.TrialStartsAt = toTimePtr(stripeSub.TrialStart)
	target.TrialEndsAt = toTimePtr(stripeSub.TrialEnd)
	target.Metadata = metadata
	return nil
}

// itemsFromStripe maps gateway line items onto mirror rows, resolving the
// catalog plan behind each price where one exists.
func itemsFromStripe(stripeSub *stripe.Subscription, catalog *catalogpkg.Catalog) []models.SubscriptionItem {
	if stripeSub == nil || stripeSub.Items == nil {
		return nil
	}

	items := make([]models.SubscriptionItem, 0, len(stripeSub.Items.Data))
	for _, raw := range stripeSub.Items.Data {
		if raw == nil || raw.Price == nil {
			continue
		}

		item := models.SubscriptionItem{
			StripeItemID: raw.ID,
			Type:         enums.LineItemTypeFlat,
			Interval:     enums.BillingIntervalMonth,
			Quantity:     raw.Quantity,
		}
		if raw.Price.Recurring != nil {
			if interval, err := enums.ParseBillingInterval(string(raw.Price.Recurring.Interval)); err == nil {
				item.Interval = interval
			}
		}

		if pair, ok := catalog.FindPlanByPriceID(raw.Price.ID); ok {
			item.ProductID = pair.Product.ID
			item.PlanID = pair.Plan.ID
			if pair.Plan.Type != "" {
				item.Type = pair.Plan.Type
			}
		} else {
			// Price outside the catalog; mirror the raw identifiers.
			item.PlanID = raw.Price.ID
			if raw.Price.Product != nil {
				item.ProductID = raw.Price.Product.ID
			}
		}

		items = append(items, item)
	}
	return items
}

func marshalMetadata(metadata map[string]string) (json.RawMessage, error) {
	if len(metadata) == 0 {
		return json.RawMessage("{}"), nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// periodFromItems reads the billing period off the first line item, where
// the gateway reports it.
func periodFromItems(sub *stripe.Subscription) (int64, int64) {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return 0, 0
	}
	item := sub.Items.Data[0]
	if item == nil {
		return 0, 0
	}
	return item.CurrentPeriodStart, item.CurrentPeriodEnd
}

func toTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}

func toTimePtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
