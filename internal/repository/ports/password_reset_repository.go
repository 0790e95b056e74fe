package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/contarehq/erp-backend/internal/domain"
)

type PasswordResetRepository interface {
	Create(ctx context.Context, userID uuid.UUID, codeHash, codeSalt []byte, expiresAt time.Time) (*domain.PasswordReset, error)
	// FindLatestByUser returns the newest unconsumed row regardless of
	// expiry; callers decide whether it is still usable.
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.PasswordReset, error)
	// SupersedeByUser invalidates every unconsumed row for the user so at
	// most one code is ever active.
	SupersedeByUser(ctx context.Context, userID uuid.UUID) error
	// ConsumeAndSetPassword marks the reset row consumed and writes the new
	// password hash in one transaction. Either both happen or neither does.
	ConsumeAndSetPassword(ctx context.Context, resetID int64, userID uuid.UUID, passwordHash, passwordSalt []byte) error
}
