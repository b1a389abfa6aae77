package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	ScopeMessage = "message"
)

// CheckAndSetRateLimit claims the action for the window. A nil client
// disables throttling.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string, limit time.Duration) (bool, error) {
	if rdb == nil || limit <= 0 {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, key(userID, action), "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key(userID, action)).Result()
}

func key(userID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
}

// Limiter binds the helpers to one client and window.
type Limiter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewLimiter(rdb *redis.Client, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, window: window}
}

func (l *Limiter) Allow(ctx context.Context, userID uuid.UUID, action string) (bool, error) {
	return CheckAndSetRateLimit(ctx, l.rdb, userID, action, l.window)
}

func (l *Limiter) RetryAfter(ctx context.Context, userID uuid.UUID, action string) (time.Duration, error) {
	return GetRateLimitTTL(ctx, l.rdb, userID, action)
}
