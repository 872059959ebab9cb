package invitations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

// Repository handles invitation persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to invitation operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new invitation row.
func (r *Repository) Create(ctx context.Context, invitation *models.Invitation) error {
	return r.CreateTx(ctx, r.db, invitation)
}

// CreateTx persists a new invitation inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, invitation *models.Invitation) error {
	return tx.WithContext(ctx).Create(invitation).Error
}

// FindByToken loads an invitation by its opaque token.
func (r *Repository) FindByToken(ctx context.Context, token string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).Where("invite_token = ?", token).First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// FindByID loads an invitation by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&invitation).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// UpdateRoleTx atomically rewrites the proposed role for a pending
// invitation and reports whether the row still existed.
func (r *Repository) UpdateRoleTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.AccountRole) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&models.Invitation{}).
		Where("id = ?", id).
		Update("role", role)
	return result.RowsAffected, result.Error
}

// FindByAccountEmail loads the pending invitation for the account/email pair.
func (r *Repository) FindByAccountEmail(ctx context.Context, accountID uuid.UUID, email string) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND email = ?", accountID, email).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// ListByAccount returns all pending invitations for the account.
func (r *Repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Invitation, error) {
	var rows []models.Invitation
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at").
		Find(&rows).Error
	return rows, err
}

// DeleteByIDTx removes the invitation inside the caller's transaction and
// reports how many rows were removed. Concurrent acceptors race on this
// delete; exactly one sees a row.
func (r *Repository) DeleteByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	result := tx.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Invitation{})
	return result.RowsAffected, result.Error
}

// DeleteExpired removes invitations whose expiry has passed.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.Invitation{})
	return result.RowsAffected, result.Error
}
