package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"hoctap/internal/metrics"
	"hoctap/internal/models"
	"hoctap/internal/repository"
)

// MinUnlockCodeLength is the shortest accepted unlock code, in characters
const MinUnlockCodeLength = 6

// CodeHasher computes and checks keyed hashes of unlock codes
type CodeHasher interface {
	Hash(code string) string
	Matches(code, storedHash string) bool
}

// UnlockInfo is the unlock counter as shown to the user
type UnlockInfo struct {
	UnlockQuota   int  `json:"unlockQuota"`
	UnlocksUsed   int  `json:"unlocksUsed"`
	HasUnlockCode bool `json:"hasUnlockCode"`
}

// UnlockResult is the outcome of a verify call
type UnlockResult struct {
	Valid            bool `json:"valid"`
	RemainingUnlocks int  `json:"remainingUnlocks"`
}

// UnlockService gates answer reveals behind a per-user code and quota
type UnlockService struct {
	users  *repository.UserRepository
	hasher CodeHasher
	now    func() time.Time
}

// NewUnlockService creates a new unlock service
func NewUnlockService(users *repository.UserRepository, hasher CodeHasher) *UnlockService {
	return &UnlockService{users: users, hasher: hasher, now: time.Now}
}

// GetInfo returns the unlock counters
func (s *UnlockService) GetInfo(ctx context.Context, userID string) (*UnlockInfo, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UnlockInfo{
		UnlockQuota:   user.UnlockQuota,
		UnlocksUsed:   user.UnlocksUsed,
		HasUnlockCode: user.HasUnlockCode(),
	}, nil
}

// SetCode stores the keyed hash of code, replacing any previous one
func (s *UnlockService) SetCode(ctx context.Context, userID, code string) error {
	if utf8.RuneCountInString(code) < MinUnlockCodeLength {
		return ErrUnlockCodeTooShort
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	return s.users.SetUnlockCodeHash(ctx, userID, s.hasher.Hash(code), s.now())
}

// Verify checks code against the stored hash. The quota is checked first so
// an exhausted user never reaches the comparison. A wrong code returns
// Valid=false and leaves the counters untouched.
func (s *UnlockService) Verify(ctx context.Context, userID, code string) (*UnlockResult, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.HasUnlockCode() {
		return nil, ErrUnlockNotConfigured
	}
	if user.UnlocksUsed >= user.UnlockQuota {
		metrics.QuotaDecisions.WithLabelValues(metrics.LimiterUnlock, metrics.OutcomeDenied).Inc()
		metrics.UnlockAttempts.WithLabelValues(metrics.OutcomeDenied).Inc()
		return nil, ErrUnlockQuotaExhausted
	}

	if !s.hasher.Matches(code, user.UnlockCodeHash) {
		metrics.UnlockAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return &UnlockResult{Valid: false, RemainingUnlocks: user.UnlockQuota - user.UnlocksUsed}, nil
	}

	ok, err := s.users.ConsumeUnlock(ctx, userID, s.now())
	if err != nil {
		metrics.UnlockAttempts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("consume unlock: %w", err)
	}
	if !ok {
		// another request spent the last unlock first
		metrics.QuotaDecisions.WithLabelValues(metrics.LimiterUnlock, metrics.OutcomeDenied).Inc()
		metrics.UnlockAttempts.WithLabelValues(metrics.OutcomeDenied).Inc()
		return nil, ErrUnlockQuotaExhausted
	}
	metrics.QuotaDecisions.WithLabelValues(metrics.LimiterUnlock, metrics.OutcomeAllowed).Inc()
	metrics.UnlockAttempts.WithLabelValues(metrics.OutcomeAllowed).Inc()

	updated, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	remaining := updated.UnlockQuota - updated.UnlocksUsed
	if remaining < 0 {
		remaining = 0
	}
	return &UnlockResult{Valid: true, RemainingUnlocks: remaining}, nil
}

// ResetAllUsage zeroes unlocks_used for every user
func (s *UnlockService) ResetAllUsage(ctx context.Context) (int64, error) {
	return s.users.ResetAllUnlocks(ctx, s.now())
}

func (s *UnlockService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
