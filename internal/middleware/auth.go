package middleware

import (
	"snapfeed/internal/store"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocal is the fiber local holding the signed-in user's id.
const UserIDLocal = "userID"

// SessionRequired rejects requests while no user is signed in and records
// the user's id in locals otherwise.
func SessionRequired(st interface{ GetState() store.RootState }) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := store.CurrentUserID(st.GetState())
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "You must be signed in",
				"code":  "UNAUTHORIZED",
			})
		}
		c.Locals(UserIDLocal, id)
		return c.Next()
	}
}
