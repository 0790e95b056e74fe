package http

import "time"

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
}

// AuthUser models the sanitized user representation returned by auth endpoints.
type AuthUser struct {
	ID        string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email     string    `json:"email" example:"user@example.com"`
	Phone     *string   `json:"phone,omitempty" example:"5511999990001"`
	FullName  *string   `json:"full_name,omitempty" example:"Maria Souza"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-01T12:00:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-02T09:30:00Z"`
}

// AuthTokenResponse is returned by endpoints that issue JWT tokens.
type AuthTokenResponse struct {
	Token     string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt string   `json:"expires_at" example:"2024-01-02T09:30:00Z"`
	User      AuthUser `json:"user"`
}

// SuccessResponse denotes a simple success flag.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// RegisterRequest carries registration fields. Phone is optional and enables
// the WhatsApp reset channel.
type RegisterRequest struct {
	Email    string  `json:"email" example:"user@example.com"`
	Phone    *string `json:"phone,omitempty" example:"5511999990001"`
	Password string  `json:"password" example:"StrongPass!234"`
}

// LoginRequest carries email login fields.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"StrongPass!234"`
}

// ChangePasswordRequest captures the payload for password updates.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" example:"OldPass!234"`
	NewPassword     string `json:"new_password" example:"NewPass!456"`
}

// PasswordResetRequest captures the payload for requesting a reset code. The
// identifier may be an email address or a phone number.
type PasswordResetRequest struct {
	Identifier string `json:"identifier" example:"user@example.com"`
}

// PasswordResetResponse reports which channel carried the code. Code is only
// populated outside production.
type PasswordResetResponse struct {
	Channel string `json:"channel" example:"whatsapp"`
	Code    string `json:"code,omitempty" example:"123456"`
}

// PasswordResetConfirmRequest captures the payload for confirming a reset.
type PasswordResetConfirmRequest struct {
	Identifier  string `json:"identifier" example:"user@example.com"`
	Code        string `json:"code" example:"123456"`
	NewPassword string `json:"new_password" example:"NewPass!456"`
}
