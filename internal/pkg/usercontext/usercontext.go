package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the complete staff context for a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	AcademyID  uint   `json:"academy_id"`
	Username   string `json:"username"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
	Tier       string `json:"tier"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyContextTag); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// SetUserContext stores the user context on the fiber context for handlers
// further down the chain.
func SetUserContext(c *fiber.Ctx, ctx UserContext) {
	c.Locals(KeyContextTag, ctx)
}

// IsAdmin checks if the current user is a platform admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
