// AngelaMos | 2026
// dto.go

package api

import (
	"github.com/civiclens/console-client/internal/identity"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	UserID      string        `json:"user_id"`
	Email       string        `json:"email"`
	Name        string        `json:"name"`
	Role        identity.Role `json:"role"`
	TenantID    *string       `json:"tenant_id"`
	UserType    string        `json:"user_type"`
	Permissions []string      `json:"permissions"`
}

func (r *LoginResponse) Principal() *identity.Principal {
	return &identity.Principal{
		ID:          r.UserID,
		Email:       r.Email,
		Name:        r.Name,
		Role:        r.Role,
		TenantID:    r.TenantID,
		UserType:    r.UserType,
		Permissions: identity.NormalizePermissions(r.Permissions),
	}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"old" validate:"required"`
	NewPassword     string `json:"new" validate:"required,min=8,max=128"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ConfirmPasswordResetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new"   validate:"required,min=8,max=128"`
}
