package enums

import "fmt"

// SubscriptionStatus mirrors Stripe's subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

var subscriptionStatusSet = map[SubscriptionStatus]struct{}{
	SubscriptionStatusTrialing:          {},
	SubscriptionStatusActive:            {},
	SubscriptionStatusPastDue:           {},
	SubscriptionStatusCanceled:          {},
	SubscriptionStatusIncomplete:        {},
	SubscriptionStatusIncompleteExpired: {},
	SubscriptionStatusUnpaid:            {},
	SubscriptionStatusPaused:            {},
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	_, ok := subscriptionStatusSet[s]
	return ok
}

// IsActive reports whether the status grants access to paid features.
// Trialing counts as active until the trial converts or lapses.
func (s SubscriptionStatus) IsActive() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// ParseSubscriptionStatus converts raw provider input into a
// SubscriptionStatus, rejecting values outside the known set.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	status := SubscriptionStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid subscription status %q", value)
	}
	return status, nil
}
