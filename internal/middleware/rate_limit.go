package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/eduwork-api/internal/observability"
	"github.com/noah-isme/eduwork-api/internal/utils"
)

// RateLimit limits each authenticated user, or each client IP for anonymous
// callers, to max requests per window within scope.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return fmt.Sprintf("%s:%s", scope, limiterSubject(c))
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimited().WithLabelValues(scope).Inc()
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests", fiber.Map{"kind": "RateLimited"})
		},
	})
}

func limiterSubject(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(uint); ok && id != 0 {
		return fmt.Sprintf("user-%d", id)
	}
	return "ip-" + c.IP()
}
