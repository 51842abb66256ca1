package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

// RequireAPISessionAuth ensures a logged-in session and returns JSON 401 otherwise.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !fromProtected(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireAPIAdmin ensures a platform admin for API routes, JSON errors only.
func RequireAPIAdmin(c *fiber.Ctx) error {
	if !fromProtected(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if !usercontext.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

// RequireAcademy ensures the caller is bound to an academy tenant. Platform
// admins pass regardless.
func RequireAcademy(c *fiber.Ctx) error {
	ctx := usercontext.GetUserContext(c)
	if !ctx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if ctx.AcademyID == 0 && !ctx.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "no academy membership",
		})
	}
	return c.Next()
}

func fromProtected(c *fiber.Ctx) bool {
	b, ok := c.Locals(usercontext.KeyFromProtected).(bool)
	return ok && b
}
