package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

// Repository handles billing persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertBillingCustomer(ctx context.Context, customer *models.BillingCustomer) error
	FindBillingCustomerByAccount(ctx context.Context, accountID uuid.UUID) (*models.BillingCustomer, error)
	FindBillingCustomerByCustomerID(ctx context.Context, customerID string) (*models.BillingCustomer, error)
	CreateSubscription(ctx context.Context, subscription *models.Subscription) error
	UpdateSubscription(ctx context.Context, subscription *models.Subscription) error
	FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	FindSubscriptionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	ListSubscriptionsForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Subscription, error)
	ReplaceSubscriptionItems(ctx context.Context, subscriptionID uuid.UUID, items []models.SubscriptionItem) error
	ListSubscriptionItems(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) UpsertBillingCustomer(ctx context.Context, customer *models.BillingCustomer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id", "email", "updated_at"}),
		}).
		Create(customer).Error
}

func (r *repository) FindBillingCustomerByAccount(ctx context.Context, accountID uuid.UUID) (*models.BillingCustomer, error) {
	var customer models.BillingCustomer
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindBillingCustomerByCustomerID(ctx context.Context, customerID string) (*models.BillingCustomer, error) {
	if customerID == "" {
		return nil, nil
	}
	var customer models.BillingCustomer
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Create(subscription).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).Save(subscription).Error
}

func (r *repository) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	if stripeSubscriptionID == "" {
		return nil, nil
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindSubscriptionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) ListSubscriptionsForReconciliation(ctx context.Context, limit int, lookback time.Duration) ([]models.Subscription, error) {
	if limit <= 0 {
		limit = 250
	}
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-lookback)
	statuses := []enums.SubscriptionStatus{
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusTrialing,
		enums.SubscriptionStatusPastDue,
		enums.SubscriptionStatusIncomplete,
		enums.SubscriptionStatusUnpaid,
		enums.SubscriptionStatusPaused,
	}
	var subs []models.Subscription
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("stripe_subscription_id <> ''").
		Where("(status IN (?) OR cancel_at_period_end OR current_period_end >= ?)", statuses, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// ReplaceSubscriptionItems swaps the mirrored line items wholesale; the
// gateway payload is authoritative so diffing is not worth the complexity.
func (r *repository) ReplaceSubscriptionItems(ctx context.Context, subscriptionID uuid.UUID, items []models.SubscriptionItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("subscription_id = ?", subscriptionID).
		Delete(&models.SubscriptionItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].SubscriptionID = subscriptionID
	}
	return db.Create(&items).Error
}

func (r *repository) ListSubscriptionItems(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionItem, error) {
	var items []models.SubscriptionItem
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
