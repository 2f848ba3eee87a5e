package users

import (
	"time"

	"freight-service/internal/domain"
	"freight-service/internal/profiles"
)

// Account is a user as returned by the API. Role is "driver" when the user
// holds a driver profile, "customer" otherwise.
type Account struct {
	domain.User
	Role domain.Role `json:"role"`
}

// Device is an optional push registration sent on register or login.
type Device struct {
	RegistrationID string `json:"registration_id"`
	Type           string `json:"device_type"`
}

// RegisterInput is the multipart body of POST /auth/register.
type RegisterInput struct {
	Phone       string            `json:"phone_number" validate:"required,phone"`
	Email       string            `json:"email" validate:"omitempty,email"`
	FullName    string            `json:"full_name" validate:"required,min=2,max=100"`
	Gender      string            `json:"gender" validate:"omitempty,oneof=M F D"`
	DateOfBirth *time.Time        `json:"date_of_birth"`
	Password    string            `json:"password" validate:"required"`
	Role        string            `json:"role"`
	Device      Device            `json:"-"`
	Documents   []profiles.Upload `json:"-"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Phone          string `json:"phone_number" validate:"required"`
	Password       string `json:"password" validate:"required"`
	RegistrationID string `json:"registration_id"`
	DeviceType     string `json:"device_type"`
}

// UpdateRequest is the body for PATCH /users/me. Absent fields are kept.
type UpdateRequest struct {
	FullName    *string    `json:"full_name" validate:"omitempty,min=2,max=100"`
	Email       *string    `json:"email" validate:"omitempty,email"`
	Gender      *string    `json:"gender" validate:"omitempty,oneof=M F D"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

// PasswordRequest is the body for POST /users/me/password.
type PasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// AuthResponse is returned on register / login.
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"user,omitempty"`
}
