package server

import (
	"strings"

	"snapfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// parseBody decodes the JSON body into v. On failure it writes a 400 and
// returns false.
func parseBody(c *fiber.Ctx, v any) bool {
	if err := c.BodyParser(v); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
		return false
	}
	return true
}

// param returns a trimmed route parameter. On an empty value it writes a 400
// and returns false.
func param(c *fiber.Ctx, name string) (string, bool) {
	v := strings.TrimSpace(c.Params(name))
	if v == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid "+name))
		return "", false
	}
	return v, true
}
