package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hoctap/internal/credentials"
	"hoctap/internal/logger"
	"hoctap/internal/metrics"
	"hoctap/internal/models"
	"hoctap/internal/repository"
)

// Mailer delivers issued codes
type Mailer interface {
	SendOTPEmail(ctx context.Context, toEmail, code string, purpose models.Purpose, ttl time.Duration) error
}

// IssueLimiter throttles issuance per (user, purpose). A positive duration
// denies the request for that long.
type IssueLimiter interface {
	Reserve(ctx context.Context, userID, purpose string) (time.Duration, error)
}

// OTPConfig holds the code lifetime policy
type OTPConfig struct {
	TTL          time.Duration
	MaxAttempts  int
	EmailTimeout time.Duration
}

// IssuedOTP describes a code that was stored and sent
type IssuedOTP struct {
	ID        string    `json:"otpId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyRequest identifies the code being checked. OTPID is optional and
// pins verification to one issued code.
type VerifyRequest struct {
	UserID  string
	Purpose models.Purpose
	Code    string
	OTPID   string
}

// OTPService issues and verifies emailed one-time codes
type OTPService struct {
	repo     *repository.OTPRepository
	mailer   Mailer
	limiter  IssueLimiter
	cfg      OTPConfig
	now      func() time.Time
	generate func() (string, error)
}

// NewOTPService creates a new OTP service; limiter may be nil
func NewOTPService(repo *repository.OTPRepository, mailer Mailer, limiter IssueLimiter, cfg OTPConfig) *OTPService {
	return &OTPService{
		repo:     repo,
		mailer:   mailer,
		limiter:  limiter,
		cfg:      cfg,
		now:      time.Now,
		generate: credentials.GenerateOTPCode,
	}
}

// Issue replaces any unused code for (userID, purpose) with a fresh one and
// emails it. If the email cannot be sent the new code is removed again.
func (s *OTPService) Issue(ctx context.Context, userID, email string, purpose models.Purpose) (*IssuedOTP, error) {
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}

	if s.limiter != nil {
		wait, err := s.limiter.Reserve(ctx, userID, string(purpose))
		if err != nil {
			// Redis trouble must not lock users out of recovery flows
			logger.Errorf("OTP issue limiter unavailable for user %s: %v", userID, err)
		} else if wait > 0 {
			metrics.OTPEvents.WithLabelValues(string(purpose), metrics.OTPThrottled).Inc()
			return nil, &RetryError{Err: ErrOTPRateLimited, RetryAfter: wait}
		}
	}

	if _, err := s.repo.DeleteUnused(ctx, userID, purpose); err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	now := s.now().UTC()
	otp := &models.OneTimeCode{
		ID:          uuid.NewString(),
		UserID:      userID,
		Email:       email,
		Code:        code,
		Purpose:     purpose,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.TTL),
		MaxAttempts: s.cfg.MaxAttempts,
	}
	if err := s.repo.Create(ctx, otp); err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.EmailTimeout)
	defer cancel()
	if err := s.mailer.SendOTPEmail(sendCtx, email, code, purpose, s.cfg.TTL); err != nil {
		logger.Errorf("Failed to send %s OTP to %s: %v", purpose, email, err)
		metrics.OTPEvents.WithLabelValues(string(purpose), metrics.OTPDispatchError).Inc()
		if delErr := s.repo.Delete(context.WithoutCancel(ctx), otp.ID); delErr != nil {
			logger.Errorf("Failed to roll back OTP %s: %v", otp.ID, delErr)
		}
		return nil, ErrOTPDispatchFailed
	}

	metrics.OTPEvents.WithLabelValues(string(purpose), metrics.OTPIssued).Inc()
	return &IssuedOTP{ID: otp.ID, Email: email, ExpiresAt: otp.ExpiresAt}, nil
}

// Verify checks a submitted code. Every outcome after the lookup writes:
// an expired code is retired, a wrong code burns an attempt, and a correct
// code is marked used.
func (s *OTPService) Verify(ctx context.Context, req VerifyRequest) (*models.OneTimeCode, error) {
	if !req.Purpose.Valid() {
		return nil, ErrInvalidPurpose
	}
	if !credentials.IsOTPCode(req.Code) {
		return nil, ErrInvalidOTPFormat
	}

	otp, err := s.repo.FindLatestUnused(ctx, req.UserID, req.Purpose, req.OTPID)
	if err != nil {
		return nil, err
	}
	if otp == nil {
		return nil, s.missing(ctx, req)
	}

	now := s.now()
	if otp.IsExpired(now) {
		if _, err := s.repo.MarkUsed(ctx, otp.ID, now); err != nil {
			return nil, err
		}
		s.event(req.Purpose, metrics.OTPExpired)
		return nil, ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(req.Code), []byte(otp.Code)) != 1 {
		return nil, s.recordMismatch(ctx, otp, now)
	}

	ok, err := s.repo.MarkUsed(ctx, otp.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// a concurrent request retired the code between lookup and update
		s.event(req.Purpose, metrics.OTPNotFound)
		return nil, ErrOTPNotFound
	}

	otp.Used = true
	usedAt := now.UTC()
	otp.UsedAt = &usedAt
	s.event(req.Purpose, metrics.OTPVerified)
	return otp, nil
}

func (s *OTPService) recordMismatch(ctx context.Context, otp *models.OneTimeCode, now time.Time) error {
	ok, err := s.repo.RecordFailedAttempt(ctx, otp.ID, now)
	if err != nil {
		return err
	}
	if !ok {
		s.event(otp.Purpose, metrics.OTPNotFound)
		return ErrOTPNotFound
	}

	updated, err := s.repo.GetByID(ctx, otp.ID)
	if err != nil {
		return err
	}
	if updated == nil || updated.Used {
		s.event(otp.Purpose, metrics.OTPExhausted)
		return ErrOTPAttemptsExceeded
	}

	s.event(otp.Purpose, metrics.OTPMismatch)
	return &AttemptsError{Remaining: updated.RemainingAttempts()}
}

// missing explains why no active code was found. A code burnt by failed
// attempts keeps reporting exhaustion until a new one is issued.
func (s *OTPService) missing(ctx context.Context, req VerifyRequest) error {
	latest, err := s.repo.FindLatest(ctx, req.UserID, req.Purpose, req.OTPID)
	if err != nil {
		return err
	}
	if latest != nil && latest.Attempts >= latest.MaxAttempts {
		s.event(req.Purpose, metrics.OTPExhausted)
		return ErrOTPAttemptsExceeded
	}
	s.event(req.Purpose, metrics.OTPNotFound)
	return ErrOTPNotFound
}

// PurgeExpired removes codes that expired more than retention ago
func (s *OTPService) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now().Add(-retention))
}

func (s *OTPService) event(purpose models.Purpose, event string) {
	metrics.OTPEvents.WithLabelValues(string(purpose), event).Inc()
}
