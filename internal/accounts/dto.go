package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

// AccountDTO exposes safe tenant data in API responses.
type AccountDTO struct {
	ID                 uuid.UUID         `json:"id"`
	Type               enums.AccountType `json:"type"`
	Name               string            `json:"name"`
	Slug               *string           `json:"slug,omitempty"`
	PrimaryOwnerUserID uuid.UUID         `json:"primary_owner_user_id"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// CreateAccountDTO holds creation-time data for a new account. ID is only
// set for personal accounts, which share their id with the owning user.
type CreateAccountDTO struct {
	ID                 *uuid.UUID
	Type               enums.AccountType
	Name               string
	Slug               *string
	PrimaryOwnerUserID uuid.UUID
}

// CreateAccountRequest is the transport payload for creating a team account.
type CreateAccountRequest struct {
	Name string  `json:"name" validate:"required,min=2,max=120"`
	Slug *string `json:"slug,omitempty" validate:"omitempty,min=2,max=80"`
}

// UpdateAccountInput captures the allowed account fields for mutation.
type UpdateAccountInput struct {
	Name *string
	Slug *string
}

// FromModel maps the persisted account into a DTO.
func FromModel(m *models.Account) *AccountDTO {
	if m == nil {
		return nil
	}

	return &AccountDTO{
		ID:                 m.ID,
		Type:               m.Type,
		Name:               m.Name,
		Slug:               cloneStringPtr(m.Slug),
		PrimaryOwnerUserID: m.PrimaryOwnerUserID,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// ToModel maps creation data onto the GORM model.
func (c CreateAccountDTO) ToModel() *models.Account {
	account := &models.Account{
		Type:               c.Type,
		Name:               c.Name,
		Slug:               cloneStringPtr(c.Slug),
		PrimaryOwnerUserID: c.PrimaryOwnerUserID,
	}
	if c.ID != nil {
		account.ID = *c.ID
	}
	return account
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cpy := *value
	return &cpy
}
