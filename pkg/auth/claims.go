package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID          uuid.UUID
	ActiveAccountID *uuid.UUID
	Role            enums.AccountRole
	AccountType     *enums.AccountType
	JTI             string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID          uuid.UUID          `json:"user_id"`
	ActiveAccountID *uuid.UUID         `json:"active_account_id,omitempty"`
	Role            enums.AccountRole  `json:"role"`
	AccountType     *enums.AccountType `json:"account_type,omitempty"`
	jwt.RegisteredClaims
}
