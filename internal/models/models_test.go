package models

import (
	"testing"
	"time"
)

func TestPurposeValid(t *testing.T) {
	tests := []struct {
		purpose Purpose
		want    bool
	}{
		{PurposePasswordReset, true},
		{PurposeChangeUnlockCode, true},
		{"email_change", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.purpose), func(t *testing.T) {
			if got := tt.purpose.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOneTimeCodeExpiry(t *testing.T) {
	expires := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	code := &OneTimeCode{ExpiresAt: expires}

	if code.IsExpired(expires) {
		t.Error("code should still be valid at its expiry instant")
	}
	if !code.IsExpired(expires.Add(time.Second)) {
		t.Error("code should be expired after its expiry instant")
	}
}

func TestRemainingAttempts(t *testing.T) {
	tests := []struct {
		attempts, max, want int
	}{
		{0, 3, 3},
		{2, 3, 1},
		{3, 3, 0},
		{5, 3, 0},
	}

	for _, tt := range tests {
		c := &OneTimeCode{Attempts: tt.attempts, MaxAttempts: tt.max}
		if got := c.RemainingAttempts(); got != tt.want {
			t.Errorf("RemainingAttempts(%d/%d) = %d, want %d", tt.attempts, tt.max, got, tt.want)
		}
	}
}
