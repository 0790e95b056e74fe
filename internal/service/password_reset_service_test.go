package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/contarehq/erp-backend/internal/domain"
	"github.com/contarehq/erp-backend/internal/util"
)

type fakeUserRepo struct {
	users map[string]*domain.User

	findByIdentifierErr error
	findByEmailErr      error
	findByIDErr         error

	createInput struct {
		email string
		phone *string
		hash  []byte
		salt  []byte
	}
	createResult *domain.User
	createErr    error

	updatePasswordInput struct {
		id   uuid.UUID
		hash []byte
		salt []byte
	}
	updatePasswordErr error
}

func (f *fakeUserRepo) Create(ctx context.Context, email string, phone *string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	f.createInput.email = email
	f.createInput.phone = phone
	f.createInput.hash = append([]byte(nil), passwordHash...)
	f.createInput.salt = append([]byte(nil), passwordSalt...)
	return f.createResult, f.createErr
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.findByEmailErr != nil {
		return nil, f.findByEmailErr
	}
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if f.findByIdentifierErr != nil {
		return nil, f.findByIdentifierErr
	}
	if u, ok := f.users[identifier]; ok {
		return u, nil
	}
	for _, u := range f.users {
		if u.Phone != nil && *u.Phone == identifier {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if f.findByIDErr != nil {
		return nil, f.findByIDErr
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	f.updatePasswordInput.id = id
	f.updatePasswordInput.hash = append([]byte(nil), passwordHash...)
	f.updatePasswordInput.salt = append([]byte(nil), passwordSalt...)
	return f.updatePasswordErr
}

// fakePasswordResetRepo keeps rows in memory with the same semantics as the
// Postgres repository so lifecycle tests exercise the service end to end.
type fakePasswordResetRepo struct {
	nextID int64
	rows   []*domain.PasswordReset

	supersedeCalls []uuid.UUID
	consumedInput  struct {
		resetID int64
		userID  uuid.UUID
		hash    []byte
		salt    []byte
		calls   int
	}

	createErr    error
	supersedeErr error
	consumeErr   error
}

func (f *fakePasswordResetRepo) Create(ctx context.Context, userID uuid.UUID, codeHash, codeSalt []byte, expiresAt time.Time) (*domain.PasswordReset, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	row := &domain.PasswordReset{
		ID:        f.nextID,
		UserID:    userID,
		CodeHash:  append([]byte(nil), codeHash...),
		CodeSalt:  append([]byte(nil), codeSalt...),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.rows = append(f.rows, row)
	return row, nil
}

func (f *fakePasswordResetRepo) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.PasswordReset, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID && !f.rows[i].Consumed {
			return f.rows[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePasswordResetRepo) SupersedeByUser(ctx context.Context, userID uuid.UUID) error {
	f.supersedeCalls = append(f.supersedeCalls, userID)
	if f.supersedeErr != nil {
		return f.supersedeErr
	}
	for _, row := range f.rows {
		if row.UserID == userID {
			row.Consumed = true
		}
	}
	return nil
}

func (f *fakePasswordResetRepo) ConsumeAndSetPassword(ctx context.Context, resetID int64, userID uuid.UUID, passwordHash, passwordSalt []byte) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	for _, row := range f.rows {
		if row.ID == resetID {
			if row.Consumed {
				return fmt.Errorf("row %d already consumed", resetID)
			}
			row.Consumed = true
			f.consumedInput.resetID = resetID
			f.consumedInput.userID = userID
			f.consumedInput.hash = append([]byte(nil), passwordHash...)
			f.consumedInput.salt = append([]byte(nil), passwordSalt...)
			f.consumedInput.calls++
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeWhatsAppSender struct {
	sent []struct {
		phone string
		code  string
		name  string
	}
	err error
}

func (f *fakeWhatsAppSender) SendPasswordReset(ctx context.Context, phone, code, displayName string) error {
	f.sent = append(f.sent, struct {
		phone string
		code  string
		name  string
	}{phone: phone, code: code, name: displayName})
	return f.err
}

type fakeResetMailer struct {
	sent []struct {
		email string
		code  string
	}
	err error
}

func (f *fakeResetMailer) SendPasswordReset(ctx context.Context, email, code string) error {
	f.sent = append(f.sent, struct {
		email string
		code  string
	}{email: email, code: code})
	return f.err
}

func resetStringPtr(v string) *string {
	return &v
}

func newResetFixture() (*fakeUserRepo, *fakePasswordResetRepo, *fakeWhatsAppSender, *fakeResetMailer, *domain.User) {
	user := &domain.User{
		ID:       uuid.New(),
		Email:    "u1@x.com",
		Phone:    resetStringPtr("5511999990001"),
		FullName: resetStringPtr("User One"),
	}
	users := &fakeUserRepo{users: map[string]*domain.User{user.Email: user}}
	resets := &fakePasswordResetRepo{}
	wa := &fakeWhatsAppSender{}
	mailer := &fakeResetMailer{}
	return users, resets, wa, mailer, user
}

func TestRequestReset(t *testing.T) {
	ctx := context.Background()
	users, resets, wa, mailer, user := newResetFixture()
	svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

	before := time.Now()
	result, err := svc.RequestReset(ctx, "u1@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Channel != ResetChannelWhatsApp {
		t.Fatalf("expected whatsapp channel, got %q", result.Channel)
	}
	if len(wa.sent) != 1 || wa.sent[0].phone != *user.Phone {
		t.Fatalf("expected whatsapp delivery to %s, got %+v", *user.Phone, wa.sent)
	}
	if wa.sent[0].code != result.Code {
		t.Fatalf("delivered code %q differs from issued code %q", wa.sent[0].code, result.Code)
	}
	if n, err := strconv.Atoi(result.Code); err != nil || n < 100000 || n > 999999 {
		t.Fatalf("expected 6-digit code in [100000,999999], got %q", result.Code)
	}
	if len(resets.rows) != 1 {
		t.Fatalf("expected one stored row, got %d", len(resets.rows))
	}
	expiry := resets.rows[0].ExpiresAt
	if expiry.Before(before.Add(9*time.Minute+59*time.Second)) || expiry.After(time.Now().Add(10*time.Minute+time.Second)) {
		t.Fatalf("expected expiry ten minutes out, got %v", expiry)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("expected no email when whatsapp succeeds")
	}

	t.Run("no phone on file uses email", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		user.Phone = nil
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Channel != ResetChannelEmail {
			t.Fatalf("expected email channel, got %q", result.Channel)
		}
		if len(wa.sent) != 0 || len(mailer.sent) != 1 {
			t.Fatalf("expected single email delivery, got wa=%d mail=%d", len(wa.sent), len(mailer.sent))
		}
	})

	t.Run("phone lookup resolves the same account", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		if _, err := svc.RequestReset(ctx, *user.Phone); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resets.rows) != 1 || resets.rows[0].UserID != user.ID {
			t.Fatalf("expected row stored for user %s", user.ID)
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		users, resets, wa, mailer, _ := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		_, err := svc.RequestReset(ctx, "doesnotexist@example.com")
		if !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
		if len(resets.rows) != 0 {
			t.Fatalf("expected no row stored for unknown identifier")
		}
	})

	t.Run("primary failure falls back to email", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		wa.err = errors.New("gateway timeout")
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if err != nil {
			t.Fatalf("expected fallback to succeed, got %v", err)
		}
		if result.Channel != ResetChannelEmail {
			t.Fatalf("expected email channel after fallback, got %q", result.Channel)
		}
		if len(wa.sent) != 1 || len(mailer.sent) != 1 {
			t.Fatalf("expected both channels attempted, got wa=%d mail=%d", len(wa.sent), len(mailer.sent))
		}
	})

	t.Run("delivery failure keeps the code valid", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		wa.err = errors.New("gateway timeout")
		mailer.err = errors.New("smtp down")
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if !errors.Is(err, ErrResetDeliveryFailed) {
			t.Fatalf("expected ErrResetDeliveryFailed, got %v", err)
		}
		if result == nil || result.Code == "" {
			t.Fatalf("expected issued code in result for retry")
		}
		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "FreshPass123!"); err != nil {
			t.Fatalf("code should stay valid after delivery failure, got %v", err)
		}
	})
}

func TestRequestResetSupersedesPriorCode(t *testing.T) {
	ctx := context.Background()
	users, resets, wa, mailer, user := newResetFixture()
	svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

	first, err := svc.RequestReset(ctx, user.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.RequestReset(ctx, user.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resets.supersedeCalls) != 2 {
		t.Fatalf("expected supersede before each issue, got %d calls", len(resets.supersedeCalls))
	}

	if first.Code != second.Code {
		if err := svc.ConfirmReset(ctx, user.Email, first.Code, "FreshPass123!"); !errors.Is(err, ErrResetCodeInvalid) {
			t.Fatalf("expected first code to be invalidated, got %v", err)
		}
	}
	if err := svc.ConfirmReset(ctx, user.Email, second.Code, "FreshPass123!"); err != nil {
		t.Fatalf("expected second code to validate, got %v", err)
	}
}

func TestConfirmReset(t *testing.T) {
	ctx := context.Background()

	t.Run("success consumes the code and changes the password", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "NewPass12345!"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resets.consumedInput.calls != 1 {
			t.Fatalf("expected one consume call, got %d", resets.consumedInput.calls)
		}
		if resets.consumedInput.userID != user.ID {
			t.Fatalf("expected password write for user %s", user.ID)
		}
		if len(resets.consumedInput.hash) == 0 || len(resets.consumedInput.salt) == 0 {
			t.Fatalf("expected derived hash and salt")
		}
		if !util.VerifySecret("NewPass12345!", resets.consumedInput.salt, resets.consumedInput.hash) {
			t.Fatalf("stored hash does not verify against the new password")
		}

		// Replay with the same code must fail now that the row is consumed.
		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "NewPass12345!"); !errors.Is(err, ErrResetCodeInvalid) {
			t.Fatalf("expected replay to fail with ErrResetCodeInvalid, got %v", err)
		}
	})

	t.Run("wrong code does not burn the stored code", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wrong := "000000"
		if wrong == result.Code {
			wrong = "000001"
		}
		if err := svc.ConfirmReset(ctx, user.Email, wrong, "NewPass12345!"); !errors.Is(err, ErrResetCodeInvalid) {
			t.Fatalf("expected ErrResetCodeInvalid, got %v", err)
		}
		if resets.consumedInput.calls != 0 {
			t.Fatalf("wrong guess must not consume the row")
		}
		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "NewPass12345!"); err != nil {
			t.Fatalf("correct code should still validate, got %v", err)
		}
	})

	t.Run("expired code fails and leaves the row pending", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resets.rows[0].ExpiresAt = time.Now().Add(-time.Second)

		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "NewPass12345!"); !errors.Is(err, ErrResetCodeExpired) {
			t.Fatalf("expected ErrResetCodeExpired, got %v", err)
		}
		if resets.rows[0].Consumed {
			t.Fatalf("expired row must stay pending until superseded")
		}

		// Just inside the window the same code still works.
		resets.rows[0].ExpiresAt = time.Now().Add(time.Second)
		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "NewPass12345!"); err != nil {
			t.Fatalf("expected success before expiry, got %v", err)
		}
	})

	t.Run("code match is checked before expiry", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resets.rows[0].ExpiresAt = time.Now().Add(-time.Minute)

		wrong := "000000"
		if wrong == result.Code {
			wrong = "000001"
		}
		if err := svc.ConfirmReset(ctx, user.Email, wrong, "NewPass12345!"); !errors.Is(err, ErrResetCodeInvalid) {
			t.Fatalf("expected ErrResetCodeInvalid for wrong code on expired row, got %v", err)
		}
	})

	t.Run("weak password rejected after code check", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		result, err := svc.RequestReset(ctx, user.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "weakpassword"); !errors.Is(err, ErrPasswordTooWeak) {
			t.Fatalf("expected ErrPasswordTooWeak, got %v", err)
		}
		if resets.consumedInput.calls != 0 {
			t.Fatalf("weak password must not consume the row")
		}
		if err := svc.ConfirmReset(ctx, user.Email, result.Code, "StrongPass12!"); err != nil {
			t.Fatalf("code should survive a weak-password attempt, got %v", err)
		}
	})

	t.Run("no code issued", func(t *testing.T) {
		users, resets, wa, mailer, user := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		if err := svc.ConfirmReset(ctx, user.Email, "123456", "NewPass12345!"); !errors.Is(err, ErrResetCodeInvalid) {
			t.Fatalf("expected ErrResetCodeInvalid, got %v", err)
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		users, resets, wa, mailer, _ := newResetFixture()
		svc := NewPasswordResetService(users, resets, wa, mailer, 10*time.Minute)

		if err := svc.ConfirmReset(ctx, "nobody@example.com", "123456", "NewPass12345!"); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}
