package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const throttlePrefix = "rl:ip:"

// IPThrottle caps requests per client IP per minute for one route family.
// Per-phone limits live in the OTP rate limiter; this guards against a
// single source walking many phone numbers. Redis errors fail open.
func IPThrottle(cache redis.UniversalClient, scope string, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 20
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		key := throttlePrefix + scope + ":" + c.IP()
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("ip throttle unavailable", slog.String("scope", scope), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			ttl, _ := cache.TTL(c.UserContext(), key).Result()
			if secs := int(ttl / time.Second); secs > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			}
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
