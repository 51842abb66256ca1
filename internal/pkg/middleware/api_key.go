package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/entitlements"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

// APIKeyAuthMiddleware authenticates requests carrying a staff API key header.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		db := database.GetDB()
		if db == nil {
			log.Print("api key middleware: database unavailable")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
		}

		hash := models.HashAPIKey(apiKey)
		repos := repository.GetGlobalFactory().GetRepositories()
		user, err := repos.User.GetByAPIKeyHash(hash)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Printf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		if !user.IsActive() || !user.HasActiveAPIKey() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "User inactive or key revoked"})
		}

		// Refresh last-used timestamp best-effort.
		now := time.Now()
		if err := db.Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{"api_key_last_used_at": now}).Error; err != nil {
			log.Printf("failed to update api key usage timestamp for user %d: %v", user.ID, err)
		}

		var academyID uint
		if user.AcademyID != nil {
			academyID = *user.AcademyID
		}

		userCtx := usercontext.UserContext{
			UserID:     user.ID,
			AcademyID:  academyID,
			Username:   user.Name,
			IsLoggedIn: true,
			IsAdmin:    user.Role == models.ROLE_ADMIN,
			Tier:       resolveTier(repos, academyID),
		}
		usercontext.SetUserContext(c, userCtx)
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyUserID, user.ID)
		c.Locals(usercontext.KeyUsername, user.Name)
		c.Locals(usercontext.KeyAcademyID, academyID)
		c.Locals(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)

		return c.Next()
	}
}

// resolveTier maps the academy's entitling subscription onto a tier name.
// A PAST_DUE subscription keeps its tier until reconciliation expires it.
// Academies without one run on the starter tier.
func resolveTier(repos *repository.Repositories, academyID uint) string {
	if academyID == 0 {
		return string(entitlements.TierStarter)
	}
	sub, err := repos.Subscription.GetActiveByAcademy(academyID)
	if err != nil {
		subs, lerr := repos.Subscription.ListByAcademy(academyID)
		if lerr != nil || len(subs) == 0 || !subs[0].IsEntitling() {
			return string(entitlements.TierStarter)
		}
		sub = &subs[0]
	}
	plan, err := repos.Plan.GetByID(sub.PlanID)
	if err != nil {
		return string(entitlements.TierStarter)
	}
	return string(entitlements.Normalize(plan.Tier))
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
