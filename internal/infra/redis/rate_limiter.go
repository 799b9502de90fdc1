package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter counts hits per key in clock-aligned windows. Each window gets
// its own Redis key, so a lost EXPIRE can never pin a customer at the limit.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Hit records one hit for key and returns the count in the current window.
func (r *RateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("rate window %s is not usable", window)
	}
	bucket := windowKey(key, r.now(), window)
	count, err := r.client.Incr(ctx, bucket)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		// Twice the window keeps the bucket alive across clock skew between nodes.
		if err := r.client.Expire(ctx, bucket, 2*window); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func windowKey(key string, at time.Time, window time.Duration) string {
	return fmt.Sprintf("%s:%d", key, at.UnixNano()/int64(window))
}

// UserCommandKey scopes the limiter to one customer and update kind.
func UserCommandKey(tgID int64, kind string) string {
	return fmt.Sprintf("shop:rl:%d:%s", tgID, kind)
}
