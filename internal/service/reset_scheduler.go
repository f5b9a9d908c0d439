package service

import (
	"context"
	"time"

	"hoctap/internal/logger"
)

// DefaultResetCheckInterval is how often the scheduler looks for a new quota day
const DefaultResetCheckInterval = time.Minute

// otpRetention keeps expired codes around for a day before purging
const otpRetention = 24 * time.Hour

// ResetScheduler performs the daily counter resets in-process, for
// deployments without an external cron hitting the reset endpoints
type ResetScheduler struct {
	tokens  *TokenService
	unlocks *UnlockService
	otps    *OTPService
	loc     *time.Location
	now     func() time.Time

	// each counter remembers its own last reset day so a failing step is
	// retried alone
	lastTokenDay  string
	lastUnlockDay string
}

// NewResetScheduler creates a scheduler whose day boundary follows loc
func NewResetScheduler(tokens *TokenService, unlocks *UnlockService, otps *OTPService, loc *time.Location) *ResetScheduler {
	s := &ResetScheduler{
		tokens:  tokens,
		unlocks: unlocks,
		otps:    otps,
		loc:     loc,
		now:     time.Now,
	}
	s.markDone(s.today())
	return s
}

// Start blocks, running the resets each time the quota day rolls over,
// until ctx is cancelled
func (s *ResetScheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultResetCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs the resets still pending for the current day. It reports
// whether any reset was attempted.
func (s *ResetScheduler) tick(ctx context.Context) bool {
	day := s.today()
	if s.lastTokenDay == day && s.lastUnlockDay == day {
		return false
	}

	if s.lastTokenDay != day {
		tokens, err := s.tokens.ResetAll(ctx)
		if err != nil {
			logger.Errorf("Scheduled token reset failed: %v", err)
		} else {
			s.lastTokenDay = day
			logger.Infof("Daily token reset for %s: %d rows", day, tokens)
		}
	}

	if s.lastUnlockDay != day {
		unlocks, err := s.unlocks.ResetAllUsage(ctx)
		if err != nil {
			logger.Errorf("Scheduled unlock reset failed: %v", err)
			return true
		}
		s.lastUnlockDay = day
		logger.Infof("Daily unlock reset for %s: %d rows", day, unlocks)

		if purged, err := s.otps.PurgeExpired(ctx, otpRetention); err != nil {
			logger.Errorf("Scheduled OTP purge failed: %v", err)
		} else if purged > 0 {
			logger.Infof("Purged %d expired OTP codes", purged)
		}
	}
	return true
}

func (s *ResetScheduler) markDone(day string) {
	s.lastTokenDay = day
	s.lastUnlockDay = day
}

func (s *ResetScheduler) today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}
