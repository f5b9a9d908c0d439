package service

import (
	"context"
	"fmt"
	"time"

	"hoctap/internal/metrics"
	"hoctap/internal/repository"
)

// UsageStatus is the daily exercise counter as shown to the user
type UsageStatus struct {
	UsedToday int  `json:"todayUsage"`
	Limit     int  `json:"dailyLimit"`
	Remaining int  `json:"remaining"`
	CanCreate bool `json:"canCreate"`
}

// UsageService gates exercise creation with a per-user daily ceiling
type UsageService struct {
	usage *repository.UsageRepository
	users *repository.UserRepository
	limit int
	loc   *time.Location
	now   func() time.Time
}

// NewUsageService creates a limiter whose day boundary follows loc
func NewUsageService(usage *repository.UsageRepository, users *repository.UserRepository, limit int, loc *time.Location) *UsageService {
	return &UsageService{
		usage: usage,
		users: users,
		limit: limit,
		loc:   loc,
		now:   time.Now,
	}
}

// Limit returns the configured daily ceiling
func (s *UsageService) Limit() int {
	return s.limit
}

// Today returns the current quota day as YYYY-MM-DD
func (s *UsageService) Today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

// Check reports today's usage; a user with no row has used nothing
func (s *UsageService) Check(ctx context.Context, userID string) (*UsageStatus, error) {
	used, err := s.usedOn(ctx, userID, s.Today())
	if err != nil {
		return nil, err
	}
	return s.status(used), nil
}

// Record adds count exercises to today's counter. The write happens only if
// the new total stays within the limit; otherwise ErrDailyLimitReached.
func (s *UsageService) Record(ctx context.Context, userID string, count int) (*UsageStatus, error) {
	if count < 1 {
		return nil, ErrInvalidAmount
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := s.now()
	day := now.In(s.loc).Format(time.DateOnly)

	ok, err := s.usage.IncrementWithinLimit(ctx, userID, day, count, s.limit, now)
	if err != nil {
		metrics.QuotaDecisions.WithLabelValues(metrics.LimiterDaily, metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("record usage: %w", err)
	}
	if !ok {
		metrics.QuotaDecisions.WithLabelValues(metrics.LimiterDaily, metrics.OutcomeDenied).Inc()
		return nil, ErrDailyLimitReached
	}
	metrics.QuotaDecisions.WithLabelValues(metrics.LimiterDaily, metrics.OutcomeAllowed).Inc()

	used, err := s.usedOn(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return s.status(used), nil
}

func (s *UsageService) usedOn(ctx context.Context, userID, day string) (int, error) {
	usage, err := s.usage.GetUsage(ctx, userID, day)
	if err != nil {
		return 0, err
	}
	if usage == nil {
		return 0, nil
	}
	return usage.Count, nil
}

func (s *UsageService) status(used int) *UsageStatus {
	remaining := s.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &UsageStatus{
		UsedToday: used,
		Limit:     s.limit,
		Remaining: remaining,
		CanCreate: remaining > 0,
	}
}
