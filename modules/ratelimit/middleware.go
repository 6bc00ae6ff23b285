package ratelimit

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// UserRateLimit limits requests per authenticated user, read from
// c.Locals("user_id"), falling back to the client IP. Limiter errors let the
// request through.
func UserRateLimit(limiter Limiter, limit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			key = "user:" + userID
		}

		result, err := limiter.Allow(c.UserContext(), key)
		if err != nil {
			log.Printf("[ratelimit] Warning: limiter unavailable, allowing request: %v", err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limited",
				"message":     "rate limit exceeded, retry after " + strconv.Itoa(retryAfter) + "s",
				"retry_after": retryAfter,
			})
		}
		return c.Next()
	}
}
