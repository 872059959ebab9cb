package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/pkg/db/models"
)

// Repository handles account persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to account operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new account row.
func (r *Repository) Create(ctx context.Context, dto CreateAccountDTO) (*models.Account, error) {
	account := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// CreateTx persists a new account inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, dto CreateAccountDTO) (*models.Account, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	account := dto.ToModel()
	if err := tx.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

// FindByID loads an account by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindBySlug loads an account by its slug.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// Update saves the provided account.
func (r *Repository) Update(ctx context.Context, account *models.Account) error {
	if account == nil {
		return fmt.Errorf("account is required")
	}
	return r.db.WithContext(ctx).Save(account).Error
}
