package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/mentora-api/internal/utils"
)

// RateLimit limits requests per bucket and caller. Authenticated callers are
// keyed by role and id so a mentor and a student sharing an address keep
// separate budgets; anonymous requests fall back to the client IP.
func RateLimit(bucket string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   window,
		KeyGenerator: func(c *fiber.Ctx) string { return rateLimitKey(bucket, c) },
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, fmt.Sprintf("too many %s requests", bucket))
		},
	})
}

func rateLimitKey(bucket string, c *fiber.Ctx) string {
	actor := ActorFromContext(c)
	if actor.ID == 0 {
		return fmt.Sprintf("%s:ip:%s", bucket, c.IP())
	}
	return fmt.Sprintf("%s:%s:%d", bucket, actor.Role, actor.ID)
}
