package model

import "time"

// User is a recruiter account.
type User struct {
	ID                  string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name                string     `gorm:"not null" json:"name"`
	Email               string     `gorm:"not null;uniqueIndex" json:"email"`
	Role                Role       `gorm:"type:varchar(16);not null" json:"role"`
	PasswordHash        string     `json:"-"`
	MustChangePassword  bool       `json:"mustChangePassword"`
	ResetTokenHash      string     `gorm:"index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	RefreshTokenHash    string     `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in other payloads.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the public projection of u.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=super-admin admin user"`
}

// UpdateUserRequest is the body of PATCH /api/users/:id.
type UpdateUserRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1"`
	Role *Role   `json:"role" validate:"omitempty,oneof=super-admin admin user"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /api/auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// UserListQuery holds the filters of GET /api/users.
type UserListQuery struct {
	Role  string `query:"role"`
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
}

// UserPage is a page of users.
type UserPage struct {
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	TotalPages int    `json:"totalPages"`
	Users      []User `json:"users"`
}
