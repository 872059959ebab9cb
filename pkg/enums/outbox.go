package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateAccount      OutboxAggregateType = "account"
	AggregateMembership   OutboxAggregateType = "membership"
	AggregateInvitation   OutboxAggregateType = "invitation"
	AggregateSubscription OutboxAggregateType = "subscription"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAccount,
	AggregateMembership,
	AggregateInvitation,
	AggregateSubscription,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventAccountCreated        OutboxEventType = "account_created"
	EventInvitationCreated     OutboxEventType = "invitation_created"
	EventInvitationUpdated     OutboxEventType = "invitation_updated"
	EventInvitationAccepted    OutboxEventType = "invitation_accepted"
	EventInvitationRevoked     OutboxEventType = "invitation_revoked"
	EventMemberRoleChanged     OutboxEventType = "member_role_changed"
	EventMemberRemoved         OutboxEventType = "member_removed"
	EventSubscriptionSynced    OutboxEventType = "subscription_synced"
	EventBillingCustomerLinked OutboxEventType = "billing_customer_linked"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAccountCreated,
	EventInvitationCreated,
	EventInvitationUpdated,
	EventInvitationAccepted,
	EventInvitationRevoked,
	EventMemberRoleChanged,
	EventMemberRemoved,
	EventSubscriptionSynced,
	EventBillingCustomerLinked,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
