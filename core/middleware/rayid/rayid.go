// Package rayid assigns a unique request id (RayID) to every incoming request.
package rayid

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HeaderName is the response header carrying the ray id.
const HeaderName = "X-Ray-Id"

// New returns a middleware that stores a fresh ray id in the request
// locals under "ray_id" and echoes it in the response headers.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(HeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("ray_id", id)
		c.Set(HeaderName, id)
		return c.Next()
	}
}
