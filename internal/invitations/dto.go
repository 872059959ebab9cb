package invitations

import (
	"time"

	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

// InvitationDTO is the transport shape for a pending invitation. The invite
// token is only returned to the inviter at creation time.
type InvitationDTO struct {
	ID              uuid.UUID         `json:"id"`
	AccountID       uuid.UUID         `json:"account_id"`
	Email           string            `json:"email"`
	Role            enums.AccountRole `json:"role"`
	InvitedByUserID uuid.UUID         `json:"invited_by_user_id"`
	ExpiresAt       time.Time         `json:"expires_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

// CreatedInvitationDTO includes the one-time token handed back to the inviter.
type CreatedInvitationDTO struct {
	InvitationDTO
	InviteToken string `json:"invite_token"`
}

// InviteInput is a single entry in a batch invitation request.
type InviteInput struct {
	Email string            `json:"email" validate:"required,email"`
	Role  enums.AccountRole `json:"role" validate:"required"`
}

// CreateInvitationsRequest is the payload for inviting people to an account.
type CreateInvitationsRequest struct {
	Invites []InviteInput `json:"invites" validate:"required,min=1,max=25,dive"`
}

// UpdateInvitationRequest rewrites the proposed role on a pending invitation.
type UpdateInvitationRequest struct {
	Role enums.AccountRole `json:"role" validate:"required"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.Invitation) *InvitationDTO {
	if m == nil {
		return nil
	}

	return &InvitationDTO{
		ID:              m.ID,
		AccountID:       m.AccountID,
		Email:           m.Email,
		Role:            m.Role,
		InvitedByUserID: m.InvitedByUserID,
		ExpiresAt:       m.ExpiresAt,
		CreatedAt:       m.CreatedAt,
	}
}

func toDTOs(rows []models.Invitation) []InvitationDTO {
	out := make([]InvitationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *ToDTO(&rows[i]))
	}
	return out
}
