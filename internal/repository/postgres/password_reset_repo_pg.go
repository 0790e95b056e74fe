package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/contarehq/erp-backend/internal/domain"
)

type PasswordResetRepository struct {
	db *sqlx.DB
}

func NewPasswordResetRepo(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, userID uuid.UUID, codeHash, codeSalt []byte, expiresAt time.Time) (*domain.PasswordReset, error) {
	const query = `
        INSERT INTO password_reset (user_id, code_hash, code_salt, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, code_hash, code_salt, expires_at, consumed, created_at
    `
	row := r.db.QueryRowxContext(ctx, query, userID, codeHash, codeSalt, expiresAt)
	var reset domain.PasswordReset
	if err := row.StructScan(&reset); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.PasswordReset, error) {
	const query = `
        SELECT id, user_id, code_hash, code_salt, expires_at, consumed, created_at
        FROM password_reset
        WHERE user_id = $1 AND consumed = FALSE
        ORDER BY created_at DESC
        LIMIT 1
    `
	var reset domain.PasswordReset
	if err := r.db.GetContext(ctx, &reset, query, userID); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) SupersedeByUser(ctx context.Context, userID uuid.UUID) error {
	const query = `
        UPDATE password_reset
        SET consumed = TRUE,
            updated_at = NOW()
        WHERE user_id = $1 AND consumed = FALSE
    `
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *PasswordResetRepository) ConsumeAndSetPassword(ctx context.Context, resetID int64, userID uuid.UUID, passwordHash, passwordSalt []byte) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset consume: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const consume = `
        UPDATE password_reset
        SET consumed = TRUE,
            updated_at = NOW()
        WHERE id = $1 AND consumed = FALSE
    `
	res, err := tx.ExecContext(ctx, consume, resetID)
	if err != nil {
		return fmt.Errorf("consume reset: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("consume reset: row %d already consumed", resetID)
	}

	const setPassword = `
        UPDATE user_account
        SET password_hash = $2,
            password_salt = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := tx.ExecContext(ctx, setPassword, userID, passwordHash, passwordSalt); err != nil {
		return fmt.Errorf("set password: %w", err)
	}

	return tx.Commit()
}
