package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/edusignal/edusignal/internal/config"
)

// RateLimitService throttles mutating admin calls with a sliding window
// kept as a sorted set in the hot Redis tier. Every operator shares the
// same limit; there are no tiers.
type RateLimitService struct {
	config *config.RateLimitConfig
	logger *logrus.Logger
	redis  *redis.Client
}

// RateLimitResult reports the window state after one request was counted.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func NewRateLimitService(cfg *config.RateLimitConfig, cache *redis.Client, logger *logrus.Logger) *RateLimitService {
	return &RateLimitService{
		config: cfg,
		logger: logger,
		redis:  cache,
	}
}

// Check counts the current request against the caller's window and reports
// whether it fits. When Redis is unreachable the request is allowed; losing
// throttling beats refusing every admin call.
func (rl *RateLimitService) Check(ctx context.Context, caller string) *RateLimitResult {
	limit := rl.config.Requests
	window := rl.config.Window
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("rate_limit:admin:%s", caller)
	cutoff := now.Add(-window)

	pipe := rl.redis.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixNano()))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.WithError(err).WithField("caller", caller).
			Warn("Rate limit check failed, allowing request")
		return &RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - 1,
			ResetAt:   now.Add(window),
		}
	}

	used := int(count.Val()) + 1
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Allowed:   used <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}
}
