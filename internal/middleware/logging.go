// Package middleware holds the fiber middleware of the local HTTP surface.
package middleware

import (
	"log/slog"
	"time"

	"snapfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware copies the request id into the request context as the
// correlation id, so service and gateway logs carry it and the gateway
// forwards it to the backend.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ctx = observability.WithCorrelationID(ctx, rid)
		}
		c.SetUserContext(observability.EnsureCorrelationID(ctx))
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("correlation_id", observability.ExtractCorrelationID(c.UserContext())),
		}
		if uid, ok := c.Locals(UserIDLocal).(string); ok {
			fields = append(fields, slog.String("user_id", uid))
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.GlobalLogger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
