package service

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrInvalidAmount = errors.New("amount must be a positive integer")
	ErrInvalidPlan   = errors.New("unknown plan")

	ErrDailyLimitReached  = errors.New("daily exercise limit reached")
	ErrTokenQuotaExceeded = errors.New("token quota exceeded")

	ErrInvalidPurpose      = errors.New("invalid otp purpose")
	ErrOTPRateLimited      = errors.New("too many otp requests")
	ErrOTPDispatchFailed   = errors.New("failed to send otp")
	ErrInvalidOTPFormat    = errors.New("otp must be exactly 4 digits")
	ErrOTPNotFound         = errors.New("otp not found or expired")
	ErrOTPExpired          = errors.New("otp expired")
	ErrOTPInvalid          = errors.New("invalid otp")
	ErrOTPAttemptsExceeded = errors.New("too many failed attempts, otp invalidated")

	ErrUnlockNotConfigured  = errors.New("unlock code not configured")
	ErrUnlockQuotaExhausted = errors.New("unlock quota exhausted")
	ErrUnlockCodeTooShort   = errors.New("unlock code must be at least 6 characters")
)

// RetryError is a policy denial that clears after a known delay
type RetryError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryError) Error() string { return e.Err.Error() }

func (e *RetryError) Unwrap() error { return e.Err }

// AttemptsError reports a wrong OTP together with the attempts left on it
type AttemptsError struct {
	Remaining int
}

func (e *AttemptsError) Error() string { return ErrOTPInvalid.Error() }

func (e *AttemptsError) Unwrap() error { return ErrOTPInvalid }
