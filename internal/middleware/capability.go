package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fusecpt/ats/internal/access"
	"github.com/fusecpt/ats/pkg/response"
)

// RequireCapability rejects requests whose role lacks capability. It must run
// after Authenticate.
func RequireCapability(capability access.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUserID(c) == "" {
			return response.Unauthorized(c, "Authentication required")
		}
		if !access.Can(GetRole(c), capability) {
			return response.Forbidden(c, "You do not have permission to perform this action")
		}
		return c.Next()
	}
}
