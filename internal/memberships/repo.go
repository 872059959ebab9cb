package memberships

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

// Repository exposes membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListUserAccounts returns the accounts a user belongs to along with membership metadata.
func (r *Repository) ListUserAccounts(ctx context.Context, userID uuid.UUID) ([]MembershipWithAccount, error) {
	var rows []membershipWithAccountRow

	err := r.db.WithContext(ctx).
		Model(&models.AccountMembership{}).
		Select("account_memberships.*, accounts.name AS account_name, accounts.type AS account_type").
		Joins("JOIN accounts ON accounts.id = account_memberships.account_id").
		Where("account_memberships.user_id = ?", userID).
		Order("accounts.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return membershipRowsToDTO(rows), nil
}

// GetMembership retrieves a membership by user and account.
func (r *Repository) GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error) {
	var membership models.AccountMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND account_id = ?", userID, accountID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// CreateMembership persists a new membership record.
func (r *Repository) CreateMembership(ctx context.Context, accountID, userID uuid.UUID, role enums.AccountRole, invitedBy *uuid.UUID) (*models.AccountMembership, error) {
	return r.CreateMembershipTx(ctx, r.db, accountID, userID, role, invitedBy)
}

// CreateMembershipTx persists a new membership inside the caller's transaction.
func (r *Repository) CreateMembershipTx(ctx context.Context, tx *gorm.DB, accountID, userID uuid.UUID, role enums.AccountRole, invitedBy *uuid.UUID) (*models.AccountMembership, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid account role %q", role)
	}

	membership := &models.AccountMembership{
		AccountID:       accountID,
		UserID:          userID,
		Role:            role,
		InvitedByUserID: invitedBy,
	}

	if err := tx.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// UpdateRole changes the role on an existing membership.
func (r *Repository) UpdateRole(ctx context.Context, membershipID uuid.UUID, role enums.AccountRole) error {
	return r.UpdateRoleTx(ctx, r.db, membershipID, role)
}

// UpdateRoleTx changes the role inside the caller's transaction.
func (r *Repository) UpdateRoleTx(ctx context.Context, tx *gorm.DB, membershipID uuid.UUID, role enums.AccountRole) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid account role %q", role)
	}
	return tx.WithContext(ctx).
		Model(&models.AccountMembership{}).
		Where("id = ?", membershipID).
		Update("role", role).Error
}

// Delete removes the membership row.
func (r *Repository) Delete(ctx context.Context, membershipID uuid.UUID) error {
	return r.DeleteTx(ctx, r.db, membershipID)
}

// DeleteTx removes the membership row inside the caller's transaction.
func (r *Repository) DeleteTx(ctx context.Context, tx *gorm.DB, membershipID uuid.UUID) error {
	return tx.WithContext(ctx).
		Where("id = ?", membershipID).
		Delete(&models.AccountMembership{}).Error
}

// UserHasRole reports whether the user holds one of the provided roles for the account.
func (r *Repository) UserHasRole(ctx context.Context, userID, accountID uuid.UUID, roles ...enums.AccountRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccountMembership{}).
		Where("user_id = ? AND account_id = ? AND role IN ?", userID, accountID, roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByRole returns the number of memberships holding the role within the account.
func (r *Repository) CountByRole(ctx context.Context, accountID uuid.UUID, role enums.AccountRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AccountMembership{}).
		Where("account_id = ? AND role = ?", accountID, role).
		Count(&count).Error
	return count, err
}

// ListAccountMembers returns memberships for the account along with user metadata.
func (r *Repository) ListAccountMembers(ctx context.Context, accountID uuid.UUID) ([]AccountMemberDTO, error) {
	var rows []accountMemberRow
	err := r.db.WithContext(ctx).
		Model(&models.AccountMembership{}).
		Select("account_memberships.*, users.email, users.name, users.last_login_at").
		Joins("JOIN users ON users.id = account_memberships.user_id").
		Where("account_memberships.account_id = ?", accountID).
		Order("account_memberships.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return accountMembersFromRows(rows), nil
}
