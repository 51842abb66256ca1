package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/fieldpass/fieldpass/app/repository"
)

// HandleOAuthBegin redirects to the provider's consent screen.
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the staff user in.
// OAuth is a login method only: the account must already exist and is matched
// by verified e-mail. Academy staff are provisioned by their admins, never
// self-created through a social login.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}
	if u.Email == "" {
		return c.Status(fiber.StatusBadRequest).SendString("OAuth provider returned no e-mail address")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByEmail(u.Email)
	if err != nil {
		log.Warnf("[OAuth] %s login for unknown e-mail %s", u.Provider, u.Email)
		return c.Status(fiber.StatusForbidden).SendString("No account for this e-mail. Ask your academy admin for an invitation.")
	}
	if !user.IsActive() {
		return c.Status(fiber.StatusForbidden).SendString("Account is disabled")
	}

	if err := establishSession(c, user); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session init failed")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repos.User.Update(user); err != nil {
		log.Warnf("[OAuth] Failed to record last login for user %d: %v", user.ID, err)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleOAuthLogout clears the Goth session alongside the app session.
func HandleOAuthLogout(c *fiber.Ctx) error {
	if err := gothfiber.Logout(c); err != nil {
		log.Warnf("[OAuth] Provider logout failed: %v", err)
	}
	return HandleLogout(c)
}
