package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRateLimit = 60
	rateWindow       = time.Minute
)

// RateLimit caps requests per client IP per minute using a Redis counter under
// the given prefix. Without Redis, or when Redis errors, it lets requests
// through.
func RateLimit(cache *redis.Client, prefix string, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = defaultRateLimit
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		ctx := c.UserContext()
		key := "rl:" + prefix + ":" + c.IP()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			if err := cache.Expire(ctx, key, rateWindow).Err(); err != nil {
				cache.Del(ctx, key)
				return c.Next()
			}
		}
		if cnt > int64(maxPerMin) {
			// A counter left without a TTL would block this client for good.
			if ttl, err := cache.TTL(ctx, key).Result(); err == nil && ttl < 0 {
				cache.Expire(ctx, key, rateWindow)
			}
			return fiber.NewError(http.StatusTooManyRequests, "too many wallet updates, try again later")
		}
		return c.Next()
	}
}
