package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "ratelimit:contact:"

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisLimiter allows limit requests per window for each key.
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	if client == nil {
		panic("ratelimit: redis client required")
	}
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: defaultKeyPrefix,
	}
}

// Allow increments the counter for key. The window key is created with its
// TTL and incremented in one MULTI/EXEC, so a counter never outlives its
// window. Redis errors are returned together with allowed=true so callers
// fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, redisKey, 0, l.window)
		incr = pipe.Incr(ctx, redisKey)
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("ratelimit: incr %s: %w", redisKey, err)
	}
	return incr.Val() <= l.limit, nil
}

var _ Limiter = (*RedisLimiter)(nil)
