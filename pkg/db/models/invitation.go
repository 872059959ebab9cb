package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

// Invitation is a pending offer to join an account. Acceptance and
// revocation both delete the row; there is no status column.
type Invitation struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID       uuid.UUID         `gorm:"column:account_id;type:uuid;not null;uniqueIndex:ux_invitations_account_email"`
	Email           string            `gorm:"column:email;not null;uniqueIndex:ux_invitations_account_email"`
	Role            enums.AccountRole `gorm:"column:role;type:account_role;not null"`
	InvitedByUserID uuid.UUID         `gorm:"column:invited_by_user_id;type:uuid;not null"`
	InviteToken     string            `gorm:"column:invite_token;not null;uniqueIndex"`
	ExpiresAt       time.Time         `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
