package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

// CreateCheckoutRequest selects a catalog plan to purchase.
type CreateCheckoutRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// CheckoutSessionDTO carries the opaque token the frontend embeds to
// render the hosted checkout. The Stripe price id never leaves the server.
type CheckoutSessionDTO struct {
	CheckoutToken string `json:"checkout_token"`
}

// CheckoutStatusDTO reports the state of a checkout session. The token is
// only returned while the session is still open.
type CheckoutStatusDTO struct {
	Status        string `json:"status"`
	CheckoutToken string `json:"checkout_token,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// PortalSessionDTO carries the redirect target for the billing portal.
type PortalSessionDTO struct {
	URL string `json:"url"`
}

// SubscriptionItemDTO is one mirrored line item.
type SubscriptionItemDTO struct {
	ID        uuid.UUID             `json:"id"`
	ProductID string                `json:"product_id"`
	PlanID    string                `json:"plan_id"`
	Type      enums.LineItemType    `json:"type"`
	Interval  enums.BillingInterval `json:"interval"`
	Quantity  int64                 `json:"quantity"`
}

// SubscriptionDTO is the locally mirrored subscription state.
type SubscriptionDTO struct {
	ID                 uuid.UUID                `json:"id"`
	AccountID          uuid.UUID                `json:"account_id"`
	Status             enums.SubscriptionStatus `json:"status"`
	Active             bool                     `json:"active"`
	Currency           string                   `json:"currency"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end"`
	CancelAtPeriodEnd  bool                     `json:"cancel_at_period_end"`
	CanceledAt         *time.Time               `json:"canceled_at,omitempty"`
	TrialStartsAt      *time.Time               `json:"trial_starts_at,omitempty"`
	TrialEndsAt        *time.Time               `json:"trial_ends_at,omitempty"`
	Items              []SubscriptionItemDTO    `json:"items"`
}

// ToSubscriptionDTO converts the mirror row plus its items.
func ToSubscriptionDTO(sub *models.Subscription, items []models.SubscriptionItem) *SubscriptionDTO {
	if sub == nil {
		return nil
	}

	dto := &SubscriptionDTO{
		ID:                 sub.ID,
		AccountID:          sub.AccountID,
		Status:             sub.Status,
		Active:             sub.Active,
		Currency:           sub.Currency,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         sub.CanceledAt,
		TrialStartsAt:      sub.TrialStartsAt,
		TrialEndsAt:        sub.TrialEndsAt,
		Items:              make([]SubscriptionItemDTO, 0, len(items)),
	}
	for _, item := range items {
		dto.Items = append(dto.Items, SubscriptionItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			PlanID:    item.PlanID,
			Type:      item.Type,
			Interval:  item.Interval,
			Quantity:  item.Quantity,
		})
	}
	return dto
}
