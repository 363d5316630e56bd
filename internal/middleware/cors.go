package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const feedCacheControl = "public, max-age=300"

func CORS(allowOrigins string) fiber.Handler {
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	return cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	})
}

// FeedHeaders marks feed responses readable from any origin. Only successful
// responses are marked publicly cacheable; errors must not be cached.
func FeedHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		// A returned error is turned into a response by the error handler
		// after this point, so the status here is not yet final.
		if status := c.Response().StatusCode(); err == nil && status >= 200 && status < 300 {
			c.Set(fiber.HeaderCacheControl, feedCacheControl)
		}
		return err
	}
}
