package types

import (
	"time"

	"github.com/pageza/recipe-app-api/backend/internal/models"
)

// CreateUserRequest represents the request body for registering a user
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=5"`
	Name     string `json:"name" binding:"required,notblank,max=255"`
}

// TokenRequest represents the credentials exchanged for a token
type TokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	Token string `json:"token"`
}

// UpdateUserRequest updates the authenticated user. Nil fields are left unchanged.
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Password *string `json:"password" binding:"omitempty,min=5"`
	Name     *string `json:"name" binding:"omitempty,notblank,max=255"`
}

// MissingForReplace lists the fields a full (PUT) update must include
func (r UpdateUserRequest) MissingForReplace() []string {
	var missing []string
	if r.Email == nil {
		missing = append(missing, "email")
	}
	if r.Password == nil {
		missing = append(missing, "password")
	}
	if r.Name == nil {
		missing = append(missing, "name")
	}
	return missing
}

// UserResponse is the public view of a user
type UserResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewUserResponse converts a user model
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{Email: u.Email, Name: u.Name}
}

// AdminCreateUserRequest creates a user from the admin API
type AdminCreateUserRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=5"`
	Name        string `json:"name" binding:"max=255"`
	IsActive    *bool  `json:"is_active"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// AdminUpdateUserRequest edits any user from the admin API
type AdminUpdateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email,max=255"`
	Password    *string `json:"password" binding:"omitempty,min=5"`
	Name        *string `json:"name" binding:"omitempty,max=255"`
	IsActive    *bool   `json:"is_active"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// AdminUserResponse is the administrative view of a user
type AdminUserResponse struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsActive    bool       `json:"is_active"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLogin   *time.Time `json:"last_login"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewAdminUserResponse converts a user model
func NewAdminUserResponse(u *models.User) AdminUserResponse {
	return AdminUserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsActive:    u.IsActive,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
	}
}
