// Package identity resolves the acting user for a request.
//
// Authentication itself happens upstream; the gateway forwards the
// resolved user id in a header. This middleware verifies the user exists
// and hands every handler an explicit UserContext instead of letting it
// read identity from ambient session state.
package identity

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HeaderName is the request header carrying the gateway-resolved user id.
const HeaderName = "X-User-Id"

const localsKey = "user_context"

// UserContext is the resolved acting identity passed into every sync operation.
type UserContext struct {
	UserID  uint
	Account string
}

// New returns a middleware that loads the UserContext for the forwarded
// user id. Requests without a resolvable user are rejected with 401.
func New(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(HeaderName)
		id, err := strconv.ParseUint(raw, 10, 64)
		if raw == "" || err != nil || id == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing user identity",
			})
		}

		var row struct {
			ID      uint
			Account string
		}
		err = db.WithContext(c.Context()).
			Table("users").
			Select("id", "account").
			Where("id = ?", id).
			Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unknown user",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "identity lookup failed",
			})
		}

		c.Locals(localsKey, UserContext{UserID: row.ID, Account: row.Account})
		return c.Next()
	}
}

// FromContext returns the UserContext stored by New, if any.
func FromContext(c *fiber.Ctx) (UserContext, bool) {
	uc, ok := c.Locals(localsKey).(UserContext)
	return uc, ok
}
