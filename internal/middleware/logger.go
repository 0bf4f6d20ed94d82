package middleware

import (
	"time"

	"github.com/bilgisen/karmadocs/internal/logger"
	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one line per request: method, path, status, client
// ip and latency.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		event := logger.Get().Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Str("ip", c.IP()).
			Dur("latency", time.Since(start))
		if err != nil {
			event = event.Err(err)
		}
		event.Msg("request")

		return err
	}
}
