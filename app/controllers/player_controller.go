package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/entitlements"
	"github.com/fieldpass/fieldpass/internal/pkg/photo"
	"github.com/fieldpass/fieldpass/internal/pkg/security"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

// HandleListPlayers lists the academy's players, optionally filtered by a
// name search.
func HandleListPlayers(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	repos := repository.GetGlobalFactory().GetRepositories()

	if q := c.Query("q"); q != "" {
		players, err := repos.Player.Search(userCtx.AcademyID, q)
		if err != nil {
			return internalError(c, "Search failed")
		}
		return c.JSON(fiber.Map{"players": players, "count": len(players)})
	}

	offset, limit := parsePagination(c)
	players, err := repos.Player.ListByAcademy(userCtx.AcademyID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load players")
	}
	total, err := repos.Player.CountByAcademy(userCtx.AcademyID)
	if err != nil {
		return internalError(c, "Failed to load players")
	}
	return c.JSON(fiber.Map{"players": players, "count": len(players), "total": total})
}

type playerRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DateOfBirth   string `json:"date_of_birth"` // YYYY-MM-DD
	Nationality   string `json:"nationality"`
	Position      string `json:"position"`
	PreferredFoot string `json:"preferred_foot"`
	ShirtNumber   *int   `json:"shirt_number"`
	GuardianName  string `json:"guardian_name"`
	GuardianEmail string `json:"guardian_email"`
	MedicalNotes  string `json:"medical_notes"`
}

// HandleCreatePlayer registers a player, gated by the plan's player limit.
// Medical notes are encrypted before they touch the database.
func HandleCreatePlayer(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	var req playerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return badRequest(c, "date_of_birth must be YYYY-MM-DD")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	count, err := repos.Player.CountByAcademy(userCtx.AcademyID)
	if err != nil {
		return internalError(c, "Failed to load usage")
	}
	if !entitlements.CanAddPlayer(entitlements.Normalize(userCtx.Tier), count) {
		return jsonError(c, fiber.StatusPaymentRequired, "limit_reached", "Player limit reached for the current plan")
	}

	player, err := models.NewPlayer(userCtx.AcademyID, req.FirstName, req.LastName, dob, req.Nationality)
	if err != nil {
		return badRequest(c, "Invalid player data: "+err.Error())
	}
	applyPlayerFields(player, &req)
	if err := player.Validate(); err != nil {
		return badRequest(c, "Invalid player data: "+err.Error())
	}

	if req.MedicalNotes != "" {
		enc, err := security.EncryptField(req.MedicalNotes)
		if err != nil {
			return internalError(c, "Failed to protect medical notes")
		}
		player.MedicalNotesEnc = enc
	}

	if err := repos.Player.Create(player); err != nil {
		return internalError(c, "Failed to create player")
	}
	return c.Status(fiber.StatusCreated).JSON(playerResponse(player, ""))
}

// HandleGetPlayer returns one player. Medical notes are decrypted only for
// academy admins.
func HandleGetPlayer(c *fiber.Ctx) error {
	player, ok := loadOwnedPlayer(c)
	if !ok {
		return nil
	}

	medicalNotes := ""
	if usercontext.IsAdmin(c) && player.MedicalNotesEnc != "" {
		notes, err := security.DecryptField(player.MedicalNotesEnc)
		if err != nil {
			log.Errorf("[Player] Failed to decrypt medical notes for player %s: %v", player.UUID, err)
		} else {
			medicalNotes = notes
		}
	}
	return c.JSON(playerResponse(player, medicalNotes))
}

// HandleUpdatePlayer updates a player's profile fields.
func HandleUpdatePlayer(c *fiber.Ctx) error {
	player, ok := loadOwnedPlayer(c)
	if !ok {
		return nil
	}

	var req playerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if req.FirstName != "" {
		player.FirstName = req.FirstName
	}
	if req.LastName != "" {
		player.LastName = req.LastName
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return badRequest(c, "date_of_birth must be YYYY-MM-DD")
		}
		player.DateOfBirth = dob
	}
	if req.Nationality != "" {
		player.Nationality = req.Nationality
	}
	applyPlayerFields(player, &req)
	if req.MedicalNotes != "" {
		if !usercontext.IsAdmin(c) {
			return forbidden(c, "Only admins may edit medical notes")
		}
		enc, err := security.EncryptField(req.MedicalNotes)
		if err != nil {
			return internalError(c, "Failed to protect medical notes")
		}
		player.MedicalNotesEnc = enc
	}

	if err := player.Validate(); err != nil {
		return badRequest(c, "Invalid player data: "+err.Error())
	}
	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Player.Update(player); err != nil {
		return internalError(c, "Failed to update player")
	}
	return c.JSON(playerResponse(player, ""))
}

// HandleDeletePlayer soft-deletes a player and removes the stored photos.
func HandleDeletePlayer(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return forbidden(c, "Admin access required")
	}
	player, ok := loadOwnedPlayer(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Player.Delete(player.ID); err != nil {
		return internalError(c, "Failed to delete player")
	}
	photo.Remove(player.UUID)
	return c.JSON(fiber.Map{"message": "Player deleted"})
}

// HandleUploadPlayerPhoto accepts a multipart photo upload, normalizes it
// and generates the thumbnail.
func HandleUploadPlayerPhoto(c *fiber.Ctx) error {
	player, ok := loadOwnedPlayer(c)
	if !ok {
		return nil
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "photo file is required")
	}
	if !photo.AllowedUpload(file.Filename) {
		return badRequest(c, "Unsupported image format")
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("fp_upload_%s%s", player.UUID, filepath.Ext(file.Filename)))
	if err := c.SaveFile(file, tmpPath); err != nil {
		return internalError(c, "Failed to store upload")
	}
	defer os.Remove(tmpPath)

	photoPath, thumbPath, err := photo.Process(tmpPath, player.UUID)
	if err != nil {
		log.Errorf("[Player] Photo processing failed for %s: %v", player.UUID, err)
		return badRequest(c, "Image could not be processed")
	}

	player.PhotoPath = photoPath
	player.ThumbnailPath = thumbPath
	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Player.Update(player); err != nil {
		return internalError(c, "Failed to store photo paths")
	}
	return c.JSON(fiber.Map{"photo_path": photoPath, "thumbnail_path": thumbPath})
}

func applyPlayerFields(player *models.Player, req *playerRequest) {
	if req.Position != "" {
		player.Position = req.Position
	}
	if req.PreferredFoot != "" {
		player.PreferredFoot = req.PreferredFoot
	}
	if req.ShirtNumber != nil {
		player.ShirtNumber = req.ShirtNumber
	}
	if req.GuardianName != "" {
		player.GuardianName = req.GuardianName
	}
	if req.GuardianEmail != "" {
		player.GuardianEmail = req.GuardianEmail
	}
}

func playerResponse(player *models.Player, medicalNotes string) fiber.Map {
	resp := fiber.Map{
		"player":   player,
		"is_minor": player.IsMinor(time.Now()),
	}
	if medicalNotes != "" {
		resp["medical_notes"] = medicalNotes
	}
	return resp
}

// loadOwnedPlayer resolves the :uuid route param and enforces tenancy.
func loadOwnedPlayer(c *fiber.Ctx) (*models.Player, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		_ = unauthorized(c)
		return nil, false
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	player, err := repos.Player.GetByUUID(c.Params("uuid"))
	if err != nil || player.AcademyID != userCtx.AcademyID {
		_ = notFound(c, "Player not found")
		return nil, false
	}
	return player, true
}
