package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/entitlements"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

// HandleGetAcademy returns the caller's academy profile with current usage
// against the plan limits.
func HandleGetAcademy(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	academy, err := repos.Academy.GetByID(userCtx.AcademyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Academy not found")
		}
		return internalError(c, "Failed to load academy")
	}

	playerCount, err := repos.Player.CountByAcademy(academy.ID)
	if err != nil {
		return internalError(c, "Failed to load usage")
	}
	staffCount, err := repos.User.CountByAcademy(academy.ID)
	if err != nil {
		return internalError(c, "Failed to load usage")
	}
	storageUsed, err := repos.Document.SumSizeByAcademy(academy.ID)
	if err != nil {
		return internalError(c, "Failed to load usage")
	}

	tier := entitlements.Normalize(userCtx.Tier)
	limits := entitlements.ForTier(tier)

	return c.JSON(fiber.Map{
		"academy":            academy,
		"tier":               string(tier),
		"billing_configured": academy.IsBillingConfigured(),
		"usage": fiber.Map{
			"players":             playerCount,
			"staff":               staffCount,
			"document_bytes_used": storageUsed,
		},
		"limits": limits,
	})
}

type updateAcademyRequest struct {
	Name         string `json:"name"`
	City         string `json:"city"`
	ContactEmail string `json:"contact_email"`
	FIFAOrgID    string `json:"fifa_org_id"`
}

// HandleUpdateAcademy updates the academy profile. Country is immutable:
// FIFA registration rules hang off it and changing it would invalidate every
// transfer record.
func HandleUpdateAcademy(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	var req updateAcademyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	academy, err := repos.Academy.GetByID(userCtx.AcademyID)
	if err != nil {
		return notFound(c, "Academy not found")
	}

	if req.Name != "" {
		academy.Name = req.Name
	}
	if req.City != "" {
		academy.City = req.City
	}
	if req.ContactEmail != "" {
		academy.ContactEmail = req.ContactEmail
	}
	if req.FIFAOrgID != "" {
		academy.FIFAOrgID = req.FIFAOrgID
	}
	if err := academy.Validate(); err != nil {
		return badRequest(c, "Invalid academy data: "+err.Error())
	}
	if err := repos.Academy.Update(academy); err != nil {
		return internalError(c, "Failed to update academy")
	}
	return c.JSON(academy)
}

// HandleLinkBillingCustomer creates a billing provider customer for the
// academy and stores its id. Without this link the academy stays on local
// (cash) billing and is skipped by reconciliation.
func HandleLinkBillingCustomer(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	academy, err := repos.Academy.GetByID(userCtx.AcademyID)
	if err != nil {
		return notFound(c, "Academy not found")
	}
	if academy.IsBillingConfigured() {
		return conflict(c, "Academy already has a billing customer")
	}

	ctx, cancel := providerContext()
	defer cancel()
	customer, err := billingProvider().CreateCustomer(ctx, academy.Name, academy.ContactEmail)
	if err != nil {
		log.Errorf("[Academy] Provider customer creation failed for academy %d: %v", academy.ID, err)
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "Billing provider rejected the request")
	}

	if err := repos.Academy.SetProviderCustomerID(academy.ID, customer.ID); err != nil {
		return internalError(c, "Failed to store billing customer")
	}
	return c.JSON(fiber.Map{"provider_customer_id": customer.ID})
}

// HandleListStaff lists the staff users of the caller's academy.
func HandleListStaff(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	staff, err := repos.User.ListByAcademy(userCtx.AcademyID)
	if err != nil {
		return internalError(c, "Failed to load staff")
	}
	return c.JSON(fiber.Map{"staff": staff, "count": len(staff)})
}

type createStaffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// HandleCreateStaff provisions a staff account, gated by the plan's staff
// limit.
func HandleCreateStaff(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	var req createStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Role == "" {
		req.Role = models.ROLE_STAFF
	}
	if req.Role != models.ROLE_STAFF && req.Role != models.ROLE_ADMIN {
		return badRequest(c, "Role must be staff or admin")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	staffCount, err := repos.User.CountByAcademy(userCtx.AcademyID)
	if err != nil {
		return internalError(c, "Failed to load usage")
	}
	if !entitlements.CanAddStaff(entitlements.Normalize(userCtx.Tier), staffCount) {
		return jsonError(c, fiber.StatusPaymentRequired, "limit_reached", "Staff limit reached for the current plan")
	}

	academyID := userCtx.AcademyID
	user, err := models.CreateUser(&academyID, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return badRequest(c, "Invalid user data: "+err.Error())
	}
	if err := repos.User.Create(user); err != nil {
		return conflict(c, "User could not be created (e-mail may already exist)")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  user.Role,
	})
}
