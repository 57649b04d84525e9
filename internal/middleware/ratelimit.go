package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"snapfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// CheckRateLimit counts one hit for resource/id in a fixed Redis window.
// Returns true if allowed, false if limit exceeded.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// localLimiter keeps one token bucket per client key.
type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(window / time.Duration(limit)),
		burst:    limit,
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) > 10000 {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	return limiter.Allow()
}

// RateLimit returns a Fiber middleware enforcing limit requests per window
// for each client IP. With a Redis client the window is shared across
// processes; without one each process keeps its own token buckets. A
// non-positive limit disables the middleware.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name)
}

// RateLimitWithPolicy is RateLimit with an explicit Redis failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name string) fiber.Handler {
	if limit <= 0 || window <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	local := newLocalLimiter(limit, window)

	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()

		allowed := true
		if rdb != nil {
			var err error
			allowed, err = CheckRateLimit(c.UserContext(), rdb, name, id, limit, window)
			if err != nil {
				observability.GlobalLogger.WarnContext(c.UserContext(), "rate limit store unavailable",
					"resource", name,
					"error", err,
				)
				if policy == FailClosed {
					return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
						"error": "rate limit unavailable",
					})
				}
				allowed = local.allow(id)
			}
		} else {
			allowed = local.allow(id)
		}

		if !allowed {
			c.Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
