package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/session"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

type registerRequest struct {
	AcademyName  string `json:"academy_name"`
	Country      string `json:"country"`
	City         string `json:"city"`
	ContactEmail string `json:"contact_email"`
	AdminName    string `json:"admin_name"`
	AdminEmail   string `json:"admin_email"`
	Password     string `json:"password"`
}

// HandleRegister creates a new academy together with its first admin user.
// Both rows are written in one transaction so a half-registered academy
// cannot exist.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	academy, err := models.NewAcademy(req.AcademyName, req.Country, req.City, req.ContactEmail)
	if err != nil {
		return badRequest(c, "Invalid academy data: "+err.Error())
	}

	db := database.GetDB()
	if db == nil {
		return internalError(c, "Database unavailable")
	}

	var admin *models.User
	txErr := db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)
		if err := repos.Academy.Create(academy); err != nil {
			return err
		}
		admin, err = models.CreateUser(&academy.ID, req.AdminName, req.AdminEmail, req.Password, models.ROLE_ADMIN)
		if err != nil {
			return err
		}
		return repos.User.Create(admin)
	})
	if txErr != nil {
		log.Errorf("[Auth] Registration failed for %s: %v", req.ContactEmail, txErr)
		return badRequest(c, "Registration failed: "+txErr.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"academy_uuid": academy.UUID,
		"user_id":      admin.ID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates a staff user and establishes a session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByEmail(req.Email)
	// notice: do not tell the caller whether the account or the password
	// was the problem
	if err != nil || !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Invalid credentials")
	}
	if !user.IsActive() {
		return forbidden(c, "Account is disabled")
	}

	if err := establishSession(c, user); err != nil {
		return internalError(c, "Session could not be created")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repos.User.Update(user); err != nil {
		log.Warnf("[Auth] Failed to record last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"user_id":  user.ID,
		"name":     user.Name,
		"is_admin": user.Role == models.ROLE_ADMIN,
	})
}

// HandleLogout destroys the current session.
func HandleLogout(c *fiber.Ctx) error {
	if err := session.DestroySession(c); err != nil {
		return internalError(c, "Logout failed")
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// HandleGetMe returns account information for the authenticated user.
func HandleGetMe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to load user")
	}

	resp := fiber.Map{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"role":          user.Role,
		"status":        user.Status,
		"academy_id":    user.AcademyID,
		"tier":          userCtx.Tier,
		"last_login_at": formatTimePtr(user.LastLoginAt),
		"created_at":    user.CreatedAt.UTC().Format(time.RFC3339),
	}
	if user.HasActiveAPIKey() {
		resp["api_key"] = fiber.Map{
			"prefix":       user.APIKeyPrefix,
			"created_at":   formatTimePtr(user.APIKeyCreatedAt),
			"last_used_at": formatTimePtr(user.APIKeyLastUsedAt),
		}
	}
	return c.JSON(resp)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// HandleChangePassword rotates the authenticated user's password after
// verifying the current one.
func HandleChangePassword(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.NewPassword) < 6 {
		return badRequest(c, "New password must be at least 6 characters")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return internalError(c, "Failed to load user")
	}
	if !user.CheckPassword(req.CurrentPassword) {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Current password is wrong")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return internalError(c, "Failed to set password")
	}
	if err := repos.User.Update(user); err != nil {
		return internalError(c, "Failed to store password")
	}

	log.Infof("[Auth] User %d changed their password from %s", user.ID, GetClientIP(c))
	return c.JSON(fiber.Map{"message": "Password changed"})
}

// HandleIssueAPIKey generates a fresh API key for the authenticated user.
// The raw key is returned exactly once; only its hash is stored.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return internalError(c, "Failed to load user")
	}

	raw, err := user.IssueAPIKey()
	if err != nil {
		return internalError(c, "Failed to generate API key")
	}
	if err := repos.User.Update(user); err != nil {
		return internalError(c, "Failed to store API key")
	}

	log.Infof("[Auth] User %d issued a new API key from %s", user.ID, GetClientIP(c))
	return c.JSON(fiber.Map{
		"api_key": raw,
		"prefix":  user.APIKeyPrefix,
		"message": "Store this key now. It cannot be shown again.",
	})
}

// HandleRevokeAPIKey invalidates the user's current API key.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return unauthorized(c)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	user, err := repos.User.GetByID(userCtx.UserID)
	if err != nil {
		return internalError(c, "Failed to load user")
	}
	if !user.HasActiveAPIKey() {
		return notFound(c, "No active API key")
	}

	user.RevokeAPIKey()
	if err := repos.User.Update(user); err != nil {
		return internalError(c, "Failed to revoke API key")
	}
	return c.JSON(fiber.Map{"message": "API key revoked"})
}

// establishSession writes the login state into the app session. The academy
// tier is resolved lazily by the user context middleware on the next request.
func establishSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}

	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	if user.AcademyID != nil {
		sess.Set(usercontext.KeyAcademyID, *user.AcademyID)
	}
	sess.Delete("academy_tier")

	return sess.Save()
}
