package middleware

import (
	"testing"

	"snapfeed/internal/models"
	"snapfeed/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestSessionRequired(t *testing.T) {
	st := store.New()
	app := fiber.New()
	app.Use(SessionRequired(st))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(UserIDLocal).(string))
	})

	assert.Equal(t, fiber.StatusUnauthorized, hit(t, app))

	st.Dispatch(store.AuthSuccess{CurrentUser: models.CurrentUser{User: models.UserProfile{ID: "u1"}}})
	assert.Equal(t, fiber.StatusOK, hit(t, app))

	st.Dispatch(store.Logout{})
	assert.Equal(t, fiber.StatusUnauthorized, hit(t, app))
}
