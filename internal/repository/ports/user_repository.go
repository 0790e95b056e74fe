package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/contarehq/erp-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, email string, phone *string, passwordHash, passwordSalt []byte) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByIdentifier resolves either an email address or a phone number to
	// the owning account.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
}
