package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RateLimiter: счётчик в фиксированном окне поверх INCR+EXPIRE.
type RateLimiter struct {
	c   *redis.Client
	now func() time.Time
}

func NewRateLimiter(c *redis.Client) *RateLimiter {
	return &RateLimiter{c: c, now: time.Now}
}

// Allow делает INCR по ключу и ставит TTL окна.
// Возвращает (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// MinuteKey: ключ минутного окна для scope, например "geocoder:nominatim".
func (rl *RateLimiter) MinuteKey(scope string) string {
	return fmt.Sprintf("rl:%s:%s", scope, rl.now().UTC().Format("200601021504"))
}
