package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

// Account represents the canonical tenant model. A personal account shares
// its id with the owning user; team accounts get their own id.
type Account struct {
	ID                 uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Type               enums.AccountType `gorm:"column:type;type:account_type;not null"`
	Name               string            `gorm:"column:name;not null"`
	Slug               *string           `gorm:"column:slug;uniqueIndex"`
	PrimaryOwnerUserID uuid.UUID         `gorm:"column:primary_owner_user_id;type:uuid;not null"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
