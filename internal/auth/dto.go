package auth

import (
	"github.com/avermeer/teambase-backend/internal/memberships"
	"github.com/avermeer/teambase-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair, user, and account list produced by
// a successful login.
type LoginResponse struct {
	AccessToken  string                              `json:"access_token"`
	RefreshToken string                              `json:"refresh_token"`
	Accounts     []memberships.MembershipWithAccount `json:"accounts"`
	User         *users.UserDTO                      `json:"user"`
}

// RefreshRequest pairs the (possibly expired) access token with the refresh
// token issued alongside it.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterResponse mirrors LoginResponse; registration logs the user in.
type RegisterResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
