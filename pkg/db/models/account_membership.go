package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

// AccountMembership links a user with an account and captures their role.
// Each user holds at most one membership per account.
type AccountMembership struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID       uuid.UUID         `gorm:"column:account_id;type:uuid;not null;uniqueIndex:ux_account_memberships_account_user"`
	UserID          uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_account_memberships_account_user"`
	Role            enums.AccountRole `gorm:"column:role;type:account_role;not null"`
	InvitedByUserID *uuid.UUID        `gorm:"column:invited_by_user_id;type:uuid"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
