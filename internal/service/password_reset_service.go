package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contarehq/erp-backend/internal/domain"
	"github.com/contarehq/erp-backend/internal/repository/ports"
	"github.com/contarehq/erp-backend/internal/util"
)

// ResetChannel identifies which delivery channel carried the code so the
// caller can tell the user where to look.
type ResetChannel string

const (
	ResetChannelWhatsApp ResetChannel = "whatsapp"
	ResetChannelEmail    ResetChannel = "email"
)

// WhatsAppSender delivers a reset code over the phone-based channel.
type WhatsAppSender interface {
	SendPasswordReset(ctx context.Context, phone, code, displayName string) error
}

// PasswordResetMailer delivers a reset code over the email fallback channel.
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, email, code string) error
}

// ResetRequestResult reports the outcome of a reset request. Code is returned
// for operational visibility only; handlers must not expose it to production
// clients.
type ResetRequestResult struct {
	Channel ResetChannel
	Code    string
}

// PasswordResetService owns the lifecycle of password-reset verification
// codes: issue, deliver, validate, consume. A user has at most one active
// code; issuing supersedes prior ones and a code is usable exactly once.
type PasswordResetService struct {
	users    ports.UserRepository
	resets   ports.PasswordResetRepository
	whatsapp WhatsAppSender
	mailer   PasswordResetMailer
	ttl      time.Duration
}

func NewPasswordResetService(users ports.UserRepository, resets ports.PasswordResetRepository, whatsapp WhatsAppSender, mailer PasswordResetMailer, ttl time.Duration) *PasswordResetService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PasswordResetService{users: users, resets: resets, whatsapp: whatsapp, mailer: mailer, ttl: ttl}
}

// RequestReset issues a fresh code for the account matching identifier (email
// or phone) and delivers it, preferring WhatsApp when a phone is on file.
// On a delivery failure the stored code remains valid so the caller can retry
// without burning the user's window; the result still names the channel that
// was attempted last.
func (s *PasswordResetService) RequestReset(ctx context.Context, identifier string) (*ResetRequestResult, error) {
	user, err := s.findUser(ctx, identifier)
	if err != nil {
		return nil, err
	}

	code, err := util.GenerateResetCode()
	if err != nil {
		return nil, fmt.Errorf("generate reset code: %w", err)
	}
	hash, salt, err := util.DeriveSecret(code)
	if err != nil {
		return nil, fmt.Errorf("derive reset code: %w", err)
	}

	if err := s.resets.SupersedeByUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("supersede reset codes: %w", err)
	}
	if _, err := s.resets.Create(ctx, user.ID, hash, salt, time.Now().Add(s.ttl)); err != nil {
		return nil, fmt.Errorf("store reset code: %w", err)
	}

	channel, err := s.deliver(ctx, user, code)
	result := &ResetRequestResult{Channel: channel, Code: code}
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrResetDeliveryFailed, err)
	}
	return result, nil
}

// ConfirmReset validates the supplied code and, on success, sets the new
// password and consumes the code in one transaction. Checks run in order and
// the first failure wins; a wrong code or an expired code leaves the stored
// row untouched.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, identifier, code, newPassword string) error {
	user, err := s.findUser(ctx, identifier)
	if err != nil {
		return err
	}

	reset, err := s.resets.FindLatestByUser(ctx, user.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrResetCodeInvalid
	}
	if err != nil {
		return fmt.Errorf("load reset code: %w", err)
	}

	if !util.VerifySecret(code, reset.CodeSalt, reset.CodeHash) {
		return ErrResetCodeInvalid
	}
	if reset.Expired(time.Now()) {
		return ErrResetCodeExpired
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}

	hash, salt, err := util.DeriveSecret(newPassword)
	if err != nil {
		return fmt.Errorf("derive password: %w", err)
	}
	if err := s.resets.ConsumeAndSetPassword(ctx, reset.ID, user.ID, hash, salt); err != nil {
		return fmt.Errorf("consume reset code: %w", err)
	}
	return nil
}

func (s *PasswordResetService) findUser(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.users.FindByIdentifier(ctx, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return user, nil
}

func (s *PasswordResetService) deliver(ctx context.Context, user *domain.User, code string) (ResetChannel, error) {
	var name string
	if user.FullName != nil {
		name = *user.FullName
	}

	var lastErr error
	if user.HasPhone() && s.whatsapp != nil {
		if err := s.whatsapp.SendPasswordReset(ctx, *user.Phone, code, name); err == nil {
			return ResetChannelWhatsApp, nil
		} else {
			lastErr = err
		}
	}

	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, user.Email, code); err == nil {
			return ResetChannelEmail, nil
		} else {
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no delivery channel configured")
	}
	return ResetChannelEmail, lastErr
}
