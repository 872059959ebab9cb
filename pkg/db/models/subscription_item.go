package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

type SubscriptionItem struct {
	ID             uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID             `gorm:"column:subscription_id;type:uuid;not null;index"`
	StripeItemID   string                `gorm:"column:stripe_item_id;not null;unique"`
	ProductID      string                `gorm:"column:product_id;not null"`
	PlanID         string                `gorm:"column:plan_id;not null"`
	Type           enums.LineItemType    `gorm:"column:type;type:line_item_type;not null;default:'flat'"`
	Interval       enums.BillingInterval `gorm:"column:interval;type:billing_interval;not null;default:'month'"`
	Quantity       int64                 `gorm:"column:quantity;not null;default:1"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
