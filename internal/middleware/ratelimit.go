package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/pkg/response"
)

// RateLimiter counts requests per key in fixed redis windows. A limiter
// without a redis client lets every request through.
type RateLimiter struct {
	redis  *redis.Client
	logger *zap.Logger
}

func NewRateLimiter(redisClient *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{redis: redisClient, logger: logger}
}

// KeyFunc picks the identity a request is counted against. An empty key skips
// limiting.
type KeyFunc func(c *fiber.Ctx) string

// ByIP counts requests per client address.
func ByIP(c *fiber.Ctx) string { return c.IP() }

// ByUser counts requests per authenticated user.
func ByUser(c *fiber.Ctx) string { return GetUserID(c) }

// Limit creates a rate limiting middleware
func (rl *RateLimiter) Limit(keyPrefix string, key KeyFunc, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl == nil || rl.redis == nil || maxRequests <= 0 {
			return c.Next()
		}
		id := key(c)
		if id == "" {
			return c.Next()
		}

		redisKey := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, id)
		ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
		defer cancel()

		count, err := rl.redis.Incr(ctx, redisKey).Result()
		if err != nil {
			// Redis errors let the request through.
			rl.logger.Warn("rate limiter unavailable", zap.String("key", redisKey), zap.Error(err))
			return c.Next()
		}

		if count == 1 {
			rl.redis.Expire(ctx, redisKey, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, redisKey).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// LoginLimit limits login attempts per client IP.
func (rl *RateLimiter) LoginLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("login", ByIP, maxPerMin, time.Minute)
}
