package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		fields := logrus.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   status,
			"duration": duration.String(),
			"ip":       c.IP(),
		}
		if claims, ok := c.Locals("claims").(*Claims); ok {
			fields["user_id"] = claims.UserID
		}
		logrus.WithFields(fields).Info("HTTP Request")

		return err
	}
}
