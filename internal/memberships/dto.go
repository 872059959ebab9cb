package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

// MembershipDTO is the transport shape for a raw membership record.
type MembershipDTO struct {
	ID              uuid.UUID         `json:"id"`
	AccountID       uuid.UUID         `json:"account_id"`
	UserID          uuid.UUID         `json:"user_id"`
	Role            enums.AccountRole `json:"role"`
	InvitedByUserID *uuid.UUID        `json:"invited_by_user_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// MembershipWithAccount includes basic account metadata + membership info.
type MembershipWithAccount struct {
	MembershipID    uuid.UUID         `json:"membership_id"`
	AccountID       uuid.UUID         `json:"account_id"`
	UserID          uuid.UUID         `json:"user_id"`
	AccountName     string            `json:"account_name"`
	AccountType     enums.AccountType `json:"account_type"`
	Role            enums.AccountRole `json:"role"`
	InvitedByUserID *uuid.UUID        `json:"invited_by_user_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// AccountMemberDTO mixes membership metadata with the associated user profile for account admins.
type AccountMemberDTO struct {
	MembershipID uuid.UUID         `json:"membership_id"`
	AccountID    uuid.UUID         `json:"account_id"`
	UserID       uuid.UUID         `json:"user_id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Role         enums.AccountRole `json:"role"`
	CreatedAt    time.Time         `json:"created_at"`
	LastLoginAt  *time.Time        `json:"last_login_at,omitempty"`
}

// UpdateRoleRequest is the payload for changing a member's role.
type UpdateRoleRequest struct {
	Role enums.AccountRole `json:"role" validate:"required"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.AccountMembership) *MembershipDTO {
	if m == nil {
		return nil
	}

	return &MembershipDTO{
		ID:              m.ID,
		AccountID:       m.AccountID,
		UserID:          m.UserID,
		Role:            m.Role,
		InvitedByUserID: copyUUIDPointer(m.InvitedByUserID),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func copyUUIDPointer(src *uuid.UUID) *uuid.UUID {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}
