package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID                   int64       `json:"id"`
	Name                 string      `json:"name"`
	Email                string      `json:"email"`
	Role                 domain.Role `json:"role"`
	CompanyID            *int64      `json:"company_id"`
	IsCompanyResponsible bool        `json:"is_company_responsible"`
}

// LoginResponse bundles the account with its token.
type LoginResponse struct {
	User UserResponse `json:"user"`
	Auth AuthResponse `json:"auth"`
}
