package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"hoctap/internal/credentials"
	"hoctap/internal/database/dbtest"
	"hoctap/internal/models"
	"hoctap/internal/repository"
)

type otpFixture struct {
	svc    *OTPService
	repo   *repository.OTPRepository
	mailer *fakeMailer
	clock  *clock
	userID string
}

func newOTPFixture(t *testing.T, limiter IssueLimiter) *otpFixture {
	t.Helper()
	db, _ := openDB(t)
	f := &otpFixture{
		repo:   repository.NewOTPRepository(db),
		mailer: &fakeMailer{},
		clock:  newClock(time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)),
		userID: dbtest.InsertUser(t, db, dbtest.User{Email: "hocsinh@example.vn"}),
	}
	cfg := OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3, EmailTimeout: time.Second}
	f.svc = NewOTPService(f.repo, f.mailer, limiter, cfg)
	f.svc.now = f.clock.Now
	f.svc.generate = func() (string, error) { return "4821", nil }
	return f
}

func (f *otpFixture) issue(t *testing.T) *IssuedOTP {
	t.Helper()
	issued, err := f.svc.Issue(context.Background(), f.userID, "hocsinh@example.vn", models.PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return issued
}

func (f *otpFixture) verify(code string) error {
	_, err := f.svc.Verify(context.Background(), VerifyRequest{
		UserID:  f.userID,
		Purpose: models.PurposePasswordReset,
		Code:    code,
	})
	return err
}

func TestOTPIssueStoresAndSends(t *testing.T) {
	f := newOTPFixture(t, nil)
	f.svc.generate = credentials.GenerateOTPCode

	issued := f.issue(t)

	if want := f.clock.Now().Add(10 * time.Minute); !issued.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", issued.ExpiresAt, want)
	}
	sent := f.mailer.last()
	if sent.to != "hocsinh@example.vn" || sent.purpose != models.PurposePasswordReset {
		t.Errorf("unexpected email %+v", sent)
	}
	if !credentials.IsOTPCode(sent.code) {
		t.Errorf("sent code %q is not 4 digits", sent.code)
	}

	stored, err := f.repo.GetByID(context.Background(), issued.ID)
	if err != nil || stored == nil {
		t.Fatalf("stored code missing: %v", err)
	}
	if stored.Code != sent.code || stored.Used || stored.Attempts != 0 {
		t.Errorf("stored code = %+v", stored)
	}
}

func TestOTPReissueSupersedesPreviousCode(t *testing.T) {
	f := newOTPFixture(t, nil)
	first := f.issue(t)
	f.clock.Advance(time.Second)
	second := f.issue(t)

	old, err := f.repo.GetByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if old != nil {
		t.Error("previous unused code should be removed on reissue")
	}
	if second.ID == first.ID {
		t.Error("reissue returned the same id")
	}
}

func TestOTPVerifySucceedsOnce(t *testing.T) {
	f := newOTPFixture(t, nil)
	f.issue(t)

	otp, err := f.svc.Verify(context.Background(), VerifyRequest{
		UserID:  f.userID,
		Purpose: models.PurposePasswordReset,
		Code:    "4821",
	})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !otp.Used || otp.UsedAt == nil {
		t.Errorf("verified code not marked used: %+v", otp)
	}

	if err := f.verify("4821"); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("second Verify error = %v, want ErrOTPNotFound", err)
	}
}

func TestOTPWrongPurposeNotFound(t *testing.T) {
	f := newOTPFixture(t, nil)
	f.issue(t)

	_, err := f.svc.Verify(context.Background(), VerifyRequest{
		UserID:  f.userID,
		Purpose: models.PurposeChangeUnlockCode,
		Code:    "4821",
	})
	if !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("Verify error = %v, want ErrOTPNotFound", err)
	}
}

func TestOTPSupersededIDNotFound(t *testing.T) {
	f := newOTPFixture(t, nil)
	first := f.issue(t)
	f.clock.Advance(time.Second)
	f.issue(t)

	_, err := f.svc.Verify(context.Background(), VerifyRequest{
		UserID:  f.userID,
		Purpose: models.PurposePasswordReset,
		Code:    "4821",
		OTPID:   first.ID,
	})
	if !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("Verify with superseded id error = %v, want ErrOTPNotFound", err)
	}
}

func TestOTPExpiredIsRetired(t *testing.T) {
	f := newOTPFixture(t, nil)
	issued := f.issue(t)

	f.clock.Advance(10*time.Minute + time.Second)
	if err := f.verify("4821"); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("Verify error = %v, want ErrOTPExpired", err)
	}

	stored, _ := f.repo.GetByID(context.Background(), issued.ID)
	if stored == nil || !stored.Used {
		t.Fatalf("expired code should be marked used: %+v", stored)
	}

	// even the right code is refused now
	if err := f.verify("4821"); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("Verify after expiry error = %v, want ErrOTPNotFound", err)
	}
}

func TestOTPAttemptsExhausted(t *testing.T) {
	f := newOTPFixture(t, nil)
	f.issue(t)

	steps := []struct {
		name          string
		code          string
		wantErr       error
		wantRemaining int
	}{
		{name: "first wrong", code: "0000", wantErr: ErrOTPInvalid, wantRemaining: 2},
		{name: "second wrong", code: "1111", wantErr: ErrOTPInvalid, wantRemaining: 1},
		{name: "third wrong burns code", code: "2222", wantErr: ErrOTPAttemptsExceeded},
		{name: "correct code after burn", code: "4821", wantErr: ErrOTPAttemptsExceeded},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			err := f.verify(step.code)
			if !errors.Is(err, step.wantErr) {
				t.Fatalf("Verify error = %v, want %v", err, step.wantErr)
			}
			var attempts *AttemptsError
			if errors.As(err, &attempts) && attempts.Remaining != step.wantRemaining {
				t.Errorf("Remaining = %d, want %d", attempts.Remaining, step.wantRemaining)
			}
		})
	}

	// a fresh code clears the exhausted state
	f.clock.Advance(time.Second)
	f.issue(t)
	if err := f.verify("4821"); err != nil {
		t.Errorf("Verify of new code failed: %v", err)
	}
}

func TestOTPFormatCheckedBeforeLookup(t *testing.T) {
	// a nil repository panics if Verify reaches storage
	svc := NewOTPService(nil, nil, nil, OTPConfig{})

	tests := []struct {
		name    string
		purpose models.Purpose
		code    string
		wantErr error
	}{
		{name: "letters", purpose: models.PurposePasswordReset, code: "12a4", wantErr: ErrInvalidOTPFormat},
		{name: "too short", purpose: models.PurposePasswordReset, code: "123", wantErr: ErrInvalidOTPFormat},
		{name: "too long", purpose: models.PurposePasswordReset, code: "12345", wantErr: ErrInvalidOTPFormat},
		{name: "empty", purpose: models.PurposePasswordReset, code: "", wantErr: ErrInvalidOTPFormat},
		{name: "unknown purpose", purpose: "login", code: "1234", wantErr: ErrInvalidPurpose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(context.Background(), VerifyRequest{UserID: "u", Purpose: tt.purpose, Code: tt.code})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOTPDispatchFailureRollsBack(t *testing.T) {
	f := newOTPFixture(t, nil)
	f.mailer.err = errSMTPDown

	_, err := f.svc.Issue(context.Background(), f.userID, "hocsinh@example.vn", models.PurposePasswordReset)
	if !errors.Is(err, ErrOTPDispatchFailed) {
		t.Fatalf("Issue error = %v, want ErrOTPDispatchFailed", err)
	}

	latest, err := f.repo.FindLatest(context.Background(), f.userID, models.PurposePasswordReset, "")
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if latest != nil {
		t.Errorf("undelivered code should have been removed, found %+v", latest)
	}
}

func TestOTPIssueLimiter(t *testing.T) {
	tests := []struct {
		name      string
		limiter   *fakeLimiter
		wantErr   error
		wantRetry time.Duration
	}{
		{name: "throttled", limiter: &fakeLimiter{wait: 42 * time.Second}, wantErr: ErrOTPRateLimited, wantRetry: 42 * time.Second},
		{name: "limiter down fails open", limiter: &fakeLimiter{err: errors.New("redis: connection refused")}},
		{name: "allowed", limiter: &fakeLimiter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOTPFixture(t, tt.limiter)
			_, err := f.svc.Issue(context.Background(), f.userID, "hocsinh@example.vn", models.PurposePasswordReset)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Issue failed: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Issue error = %v, want %v", err, tt.wantErr)
			}
			var retry *RetryError
			if !errors.As(err, &retry) || retry.RetryAfter != tt.wantRetry {
				t.Errorf("RetryAfter = %v, want %v", retry, tt.wantRetry)
			}
			if len(f.mailer.sent) != 0 {
				t.Error("throttled issue should not send email")
			}
		})
	}
}

func TestOTPPurgeExpired(t *testing.T) {
	f := newOTPFixture(t, nil)
	f.issue(t)

	f.clock.Advance(25 * time.Hour)
	n, err := f.svc.PurgeExpired(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeExpired = %d, want 1", n)
	}
}
