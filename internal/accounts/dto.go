package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/db/models"
	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
	"github.com/prosupplyhq/prosupply-backend/pkg/pagination"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	Username    string         `json:"username"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// LoginRequest carries the credentials for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the token pair plus the authenticated profile.
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	User         *UserDTO `json:"user"`
}

// RefreshRequest exchanges an expired access token and its refresh
// token for a fresh pair.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest contains the payload required for onboarding a new account.
// CompanyName names the supplier or purchaser organization created alongside
// the user.
type RegisterRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Username    string         `json:"username" validate:"required"`
	Password    string         `json:"password" validate:"required"`
	FirstName   string         `json:"first_name" validate:"required"`
	LastName    string         `json:"last_name" validate:"required"`
	Role        enums.UserRole `json:"role" validate:"required"`
	CompanyName string         `json:"company_name" validate:"required"`
	Address     *string        `json:"address,omitempty"`
}

// PasswordResetRequest asks for a reset token to be mailed out.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirm consumes a reset token and sets the new password.
type PasswordResetConfirm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileInput carries the mutable profile fields. Role is listed
// so that attempts to change it can be rejected explicitly rather than
// silently dropped.
type UpdateProfileInput struct {
	Email     *string `json:"email,omitempty"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Role      *string `json:"role,omitempty"`
}

// UserListQuery bundles filters and pagination for the admin user listing.
type UserListQuery struct {
	Role       *enums.UserRole
	Query      string
	Pagination pagination.Params
}

// UserListResult pairs a page of users with the cursor for the next one.
type UserListResult struct {
	Users      []UserDTO `json:"users"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
