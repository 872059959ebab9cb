package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

// Subscription mirrors gateway subscription state per account. The gateway
// remains the system of record; this row is a cache refreshed by webhooks
// and the reconcile job.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID            uuid.UUID                `gorm:"column:account_id;type:uuid;not null;index"`
	StripeSubscriptionID string                   `gorm:"column:stripe_subscription_id;not null;unique"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	Active               bool                     `gorm:"column:active;not null;default:false"`
	Currency             string                   `gorm:"column:currency;not null;default:'usd'"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start"`
	CurrentPeriodEnd     time.Time                `gorm:"column:current_period_end;not null"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	CanceledAt           *time.Time               `gorm:"column:canceled_at"`
	TrialStartsAt        *time.Time               `gorm:"column:trial_starts_at"`
	TrialEndsAt          *time.Time               `gorm:"column:trial_ends_at"`
	Metadata             json.RawMessage          `gorm:"column:metadata;type:jsonb"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
