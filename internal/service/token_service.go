package service

import (
	"context"
	"fmt"
	"time"

	"hoctap/internal/metrics"
	"hoctap/internal/models"
	"hoctap/internal/repository"
)

// PlanQuotas is the daily token quota granted by each plan
var PlanQuotas = map[string]int{
	models.PlanFree:    10000,
	models.PlanBasic:   50000,
	models.PlanPremium: 200000,
}

// TokenInfo is a user's AI token allowance
type TokenInfo struct {
	Quota     int        `json:"quota"`
	Used      int        `json:"used"`
	Remaining int        `json:"remaining"`
	Plan      string     `json:"plan"`
	LastReset *time.Time `json:"lastReset"`
}

// TokenService tracks per-user AI token usage against a quota
type TokenService struct {
	users *repository.UserRepository
	now   func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(users *repository.UserRepository) *TokenService {
	return &TokenService{users: users, now: time.Now}
}

// GetInfo returns the token counters. Remaining is a display value and is
// never negative even if an old quota was lowered below usage.
func (s *TokenService) GetInfo(ctx context.Context, userID string) (*TokenInfo, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return tokenInfo(user), nil
}

// ResetDaily zeroes the user's usage and stamps the reset time
func (s *TokenService) ResetDaily(ctx context.Context, userID string) (*TokenInfo, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.ResetTokens(ctx, userID, s.now()); err != nil {
		return nil, err
	}
	return s.GetInfo(ctx, userID)
}

// ResetAll zeroes usage for every user and returns how many rows changed
func (s *TokenService) ResetAll(ctx context.Context) (int64, error) {
	return s.users.ResetAllTokens(ctx, s.now())
}

// AddTokens raises the quota by amount
func (s *TokenService) AddTokens(ctx context.Context, userID string, amount int) (*TokenInfo, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.AddTokenQuota(ctx, userID, amount, s.now()); err != nil {
		return nil, err
	}
	return s.GetInfo(ctx, userID)
}

// SetQuota overwrites the quota
func (s *TokenService) SetQuota(ctx context.Context, userID string, amount int) (*TokenInfo, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.SetTokenQuota(ctx, userID, amount, s.now()); err != nil {
		return nil, err
	}
	return s.GetInfo(ctx, userID)
}

// SetPlan moves the user to plan and grants that plan's quota
func (s *TokenService) SetPlan(ctx context.Context, userID, plan string) (*TokenInfo, error) {
	quota, ok := PlanQuotas[plan]
	if !ok {
		return nil, ErrInvalidPlan
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.SetPlan(ctx, userID, plan, quota, s.now()); err != nil {
		return nil, err
	}
	return s.GetInfo(ctx, userID)
}

// Consume charges amount tokens if the user has that much left today
func (s *TokenService) Consume(ctx context.Context, userID string, amount int) (*TokenInfo, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	ok, err := s.users.ConsumeTokens(ctx, userID, amount, s.now())
	if err != nil {
		metrics.QuotaDecisions.WithLabelValues(metrics.LimiterTokens, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("consume tokens: %w", err)
	}
	if !ok {
		metrics.QuotaDecisions.WithLabelValues(metrics.LimiterTokens, metrics.OutcomeDenied).Inc()
		return nil, ErrTokenQuotaExceeded
	}
	metrics.QuotaDecisions.WithLabelValues(metrics.LimiterTokens, metrics.OutcomeAllowed).Inc()
	return s.GetInfo(ctx, userID)
}

func (s *TokenService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func tokenInfo(user *models.User) *TokenInfo {
	remaining := user.TokenQuota - user.TokensUsedToday
	if remaining < 0 {
		remaining = 0
	}
	return &TokenInfo{
		Quota:     user.TokenQuota,
		Used:      user.TokensUsedToday,
		Remaining: remaining,
		Plan:      user.Plan,
		LastReset: user.TokensLastReset,
	}
}
