package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"concord-gateway/internal/database"
)

// RateLimiter implements a sliding-window limit over a redis sorted set.
// Counting is fail-open: if redis is unreachable the caller decides.
type RateLimiter struct {
	client *database.RedisClient
}

func NewRateLimiter(client *database.RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).Unix()

	pipe := r.client.GetClient().Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.Unix()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() < int64(limit), nil
}
