package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contarehq/erp-backend/internal/domain"
	"github.com/contarehq/erp-backend/internal/repository/ports"
	"github.com/contarehq/erp-backend/internal/util"
)

const defaultRoleName = "member"

// AuthResult carries the signed token and the authenticated user back to the
// transport layer.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

type AuthService struct {
	users    ports.UserRepository
	roles    ports.RoleRepository
	sessions ports.SessionRepository
	jwt      *util.JWTManager
}

func NewAuthService(users ports.UserRepository, roles ports.RoleRepository, sessions ports.SessionRepository, jwt *util.JWTManager) *AuthService {
	return &AuthService{users: users, roles: roles, sessions: sessions, jwt: jwt}
}

func (s *AuthService) Register(ctx context.Context, email string, phone *string, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := util.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}

	hash, salt, err := util.DeriveSecret(password)
	if err != nil {
		return nil, fmt.Errorf("derive password: %w", err)
	}

	user, err := s.users.Create(ctx, email, phone, hash, salt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailAlreadyUsed
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if role, err := s.roles.GetOrCreateRole(ctx, defaultRoleName, "default tenant member"); err == nil {
		if err := s.roles.AssignUserRole(ctx, user.ID, role.ID); err == nil {
			user.Roles = append(user.Roles, *role)
		}
	}

	return s.issueSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if !util.VerifySecret(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(ctx, user)
}

// Authenticate resolves a bearer token to its user. The token must parse, the
// server-side session must still be active, and the account must exist.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if _, err := s.sessions.FindActiveSession(ctx, token); err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeactivateSession(ctx, token)
}

// ChangePassword rotates the password for an authenticated user. An account
// without a stored password (for example, created before credentials were
// required) may set one without supplying the current password.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("find account: %w", err)
	}

	if len(user.PasswordHash) > 0 && !util.VerifySecret(currentPassword, user.PasswordSalt, user.PasswordHash) {
		return ErrPasswordMismatch
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordTooWeak, err)
	}

	hash, salt, err := util.DeriveSecret(newPassword)
	if err != nil {
		return fmt.Errorf("derive password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash, salt)
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
