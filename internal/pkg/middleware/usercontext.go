package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/session"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request
// This centralizes staff session handling and eliminates code duplication
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return anonymous(c)
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		return anonymous(c)
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin := sess.Get(usercontext.KeyIsAdmin)

	var academyID uint
	if v, ok := sess.Get(usercontext.KeyAcademyID).(uint); ok {
		academyID = v
	}

	// Tier resolution is session-first; the DB lookup runs once per login.
	tier := session.GetSessionValue(c, "academy_tier")
	if tier == "" {
		if factory := repository.GetGlobalFactory(); factory != nil {
			tier = resolveTier(factory.GetRepositories(), academyID)
		}
		_ = session.SetSessionValue(c, "academy_tier", tier)
	}

	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		AcademyID:  academyID,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin != nil && isAdmin.(bool),
		Tier:       tier,
	}
	usercontext.SetUserContext(c, userCtx)

	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyUserID, userCtx.UserID)
	c.Locals(usercontext.KeyUsername, username)
	c.Locals(usercontext.KeyAcademyID, academyID)
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)

	return c.Next()
}

func anonymous(c *fiber.Ctx) error {
	usercontext.SetUserContext(c, usercontext.UserContext{
		IsLoggedIn: false,
		IsAdmin:    false,
	})
	c.Locals(usercontext.KeyFromProtected, false)
	c.Locals(usercontext.KeyIsAdmin, false)
	return c.Next()
}
