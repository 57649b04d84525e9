package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snapfeed/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

func hit(t *testing.T, app *fiber.App) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestContextMiddleware_CarriesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(observability.ExtractCorrelationID(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	body := make([]byte, 64)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "req-123", string(body[:n]))
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/", okHandler)

	assert.Equal(t, fiber.StatusOK, hit(t, app))
}

func TestRateLimit_Local(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(nil, 2, time.Minute, "test"))
	app.Get("/", okHandler)

	assert.Equal(t, fiber.StatusOK, hit(t, app))
	assert.Equal(t, fiber.StatusOK, hit(t, app))
	assert.Equal(t, fiber.StatusTooManyRequests, hit(t, app))
}

func TestRateLimit_Disabled(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimit(nil, 0, time.Minute, "test"))
	app.Get("/", okHandler)

	for i := 0; i < 5; i++ {
		assert.Equal(t, fiber.StatusOK, hit(t, app))
	}
}

func TestRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	app := fiber.New()
	app.Use(RateLimit(rdb, 1, time.Minute, "dispatch"))
	app.Get("/", okHandler)

	assert.Equal(t, fiber.StatusOK, hit(t, app))
	assert.Equal(t, fiber.StatusTooManyRequests, hit(t, app))
	require.Len(t, mr.Keys(), 1)
	assert.Contains(t, mr.Keys()[0], "rl:dispatch:ip:")

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, fiber.StatusOK, hit(t, app), "the window expires")
}

func TestRateLimit_RedisFailurePolicy(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.SetError("ERR storage offline")

	open := fiber.New()
	open.Use(RateLimitWithPolicy(rdb, 5, time.Minute, FailOpen, "open"))
	open.Get("/", okHandler)
	assert.Equal(t, fiber.StatusOK, hit(t, open))

	closed := fiber.New()
	closed.Use(RateLimitWithPolicy(rdb, 5, time.Minute, FailClosed, "closed"))
	closed.Get("/", okHandler)
	assert.Equal(t, fiber.StatusServiceUnavailable, hit(t, closed))
}
