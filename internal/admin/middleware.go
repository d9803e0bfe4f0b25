package admin

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/xovato/agency-backend/pkg/utils"
)

// LocalsEmail is the fiber.Ctx locals key holding the authorized admin email.
const LocalsEmail = "admin_email"

// RequireAdmin rejects requests whose identity header is not allowlisted. The header
// is set by the authenticating proxy in front of the service.
func RequireAdmin(logger *zap.Logger, list *Allowlist, header string) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		email := c.Get(header)
		if !list.IsAuthorized(email) {
			logger.Warn("admin.forbidden",
				zap.String("path", c.Path()),
				zap.String("email", utils.MaskEmail(email)))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}
		c.Locals(LocalsEmail, normalize(email))
		return c.Next()
	}
}
