package models

import (
	"time"

	"github.com/google/uuid"
)

// BillingCustomer maps an account to its customer record at the payment
// gateway. At most one mapping exists per account.
type BillingCustomer struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID  uuid.UUID `gorm:"column:account_id;type:uuid;not null;uniqueIndex"`
	CustomerID string    `gorm:"column:customer_id;not null;uniqueIndex"`
	Email      *string   `gorm:"column:email"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
