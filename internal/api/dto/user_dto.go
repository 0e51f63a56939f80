package dto

import (
	"time"

	"github.com/techmax/helpdesk-service/internal/domain"
)

// RegisterRequest payload for self-service signup.
type RegisterRequest struct {
	Username   string  `json:"username" validate:"required,min=3,max=50"`
	Email      string  `json:"email" validate:"required,email"`
	FullName   string  `json:"full_name" validate:"required,max=100"`
	Password   string  `json:"password" validate:"required,min=8"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
}

// LoginRequest payload.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// PasswordResetRequest payload.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// CreateUserRequest payload for admin-created accounts.
type CreateUserRequest struct {
	Username   string          `json:"username" validate:"required,min=3,max=50"`
	Email      string          `json:"email" validate:"required,email"`
	FullName   string          `json:"full_name" validate:"required,max=100"`
	Password   string          `json:"password" validate:"required,min=8"`
	Role       domain.RoleName `json:"role" validate:"required,oneof=customer agent supervisor admin"`
	Department *string         `json:"department" validate:"omitempty,max=100"`
	Phone      *string         `json:"phone" validate:"omitempty,max=30"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
}

// AssignRoleRequest payload.
type AssignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required,uuid4"`
}

// SetActiveRequest payload.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// UserResponse is the public user representation. Password hashes never
// appear here.
type UserResponse struct {
	ID         string            `json:"id"`
	Username   string            `json:"username"`
	Email      string            `json:"email"`
	FullName   string            `json:"full_name"`
	Role       *RoleResponse     `json:"role"`
	Department *string           `json:"department"`
	Phone      *string           `json:"phone"`
	Status     domain.UserStatus `json:"status"`
	Active     bool              `json:"active"`
	IsAdmin    bool              `json:"is_admin"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// RoleResponse represents a role definition.
type RoleResponse struct {
	ID          string          `json:"id"`
	Name        domain.RoleName `json:"name"`
	Description string          `json:"description"`
	Permissions []string        `json:"permissions"`
}
