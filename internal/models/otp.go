package models

import "time"

// Purpose scopes a one-time code to a single flow
type Purpose string

const (
	PurposePasswordReset    Purpose = "password_reset"
	PurposeChangeUnlockCode Purpose = "change_unlock_code"
)

// Valid reports whether p is a known purpose
func (p Purpose) Valid() bool {
	switch p {
	case PurposePasswordReset, PurposeChangeUnlockCode:
		return true
	}
	return false
}

// OneTimeCode is an emailed 4-digit verification code
type OneTimeCode struct {
	ID          string
	UserID      string
	Email       string
	Code        string
	Purpose     Purpose
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Attempts    int
	MaxAttempts int
	Used        bool
	UsedAt      *time.Time
}

// IsExpired checks whether the code has passed its expiry at now
func (c *OneTimeCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// RemainingAttempts never goes below zero
func (c *OneTimeCode) RemainingAttempts() int {
	if c.Attempts >= c.MaxAttempts {
		return 0
	}
	return c.MaxAttempts - c.Attempts
}
