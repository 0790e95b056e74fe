package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordReset is one issued verification code. Only the newest unconsumed
// row per user is ever honored; issuing a new code supersedes older rows.
// Expired rows are not purged eagerly, they simply fail the expiry check
// until overwritten.
type PasswordReset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CodeHash  []byte    `db:"code_hash" json:"-"`
	CodeSalt  []byte    `db:"code_salt" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Consumed  bool      `db:"consumed" json:"consumed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (p *PasswordReset) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
