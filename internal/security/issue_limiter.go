package security

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IssueLimits bounds how often a user may request a code for one purpose
type IssueLimits struct {
	Cooldown    time.Duration // minimum gap between two requests
	MaxInWindow int           // requests allowed per window
	Window      time.Duration
}

// RedisIssueLimiter throttles OTP issuance with Redis keys so every replica
// shares the same counters
type RedisIssueLimiter struct {
	client *redis.Client
	limits IssueLimits
}

// NewRedisIssueLimiter creates a limiter backed by client
func NewRedisIssueLimiter(client *redis.Client, limits IssueLimits) *RedisIssueLimiter {
	return &RedisIssueLimiter{client: client, limits: limits}
}

// Reserve records an issue request for (userID, purpose). A positive
// duration means the request is denied and may be retried after it.
func (l *RedisIssueLimiter) Reserve(ctx context.Context, userID, purpose string) (time.Duration, error) {
	blockKey := fmt.Sprintf("otp:block:%s:%s", userID, purpose)
	lastKey := fmt.Sprintf("otp:last:%s:%s", userID, purpose)
	countKey := fmt.Sprintf("otp:count:%s:%s", userID, purpose)

	for _, key := range []string{blockKey, lastKey} {
		ttl, err := l.client.TTL(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ttl > 0 {
			return ttl, nil
		}
	}

	count, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment issue counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, countKey, l.limits.Window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set issue window: %w", err)
		}
	}

	if int(count) > l.limits.MaxInWindow {
		block := l.limits.Window * 3
		if err := l.client.Set(ctx, blockKey, "1", block).Err(); err != nil {
			return 0, fmt.Errorf("failed to block issuer: %w", err)
		}
		return block, nil
	}

	if l.limits.Cooldown > 0 {
		if err := l.client.Set(ctx, lastKey, "1", l.limits.Cooldown).Err(); err != nil {
			return 0, fmt.Errorf("failed to set cooldown: %w", err)
		}
	}
	return 0, nil
}
