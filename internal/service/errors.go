package service

import "errors"

// Domain errors surfaced to the transport layer. Each maps to a distinct
// user-facing message; infrastructure failures propagate unwrapped sentinels
// and are reported generically.
var (
	ErrUserNotFound        = errors.New("account not found")
	ErrEmailAlreadyUsed    = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPasswordMismatch    = errors.New("current password does not match")
	ErrPasswordTooWeak     = errors.New("password does not meet the policy")
	ErrResetCodeInvalid    = errors.New("invalid reset code")
	ErrResetCodeExpired    = errors.New("reset code expired")
	ErrResetDeliveryFailed = errors.New("could not deliver reset code")
)
