package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/entitlements"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

// HandleListTransfers lists the academy's transfers.
func HandleListTransfers(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	offset, limit := parsePagination(c)
	repos := repository.GetGlobalFactory().GetRepositories()
	transfers, err := repos.Transfer.ListByAcademy(userCtx.AcademyID, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load transfers")
	}
	return c.JSON(fiber.Map{"transfers": transfers, "count": len(transfers)})
}

// HandleGetTransfer returns one transfer with its attached documents.
func HandleGetTransfer(c *fiber.Ctx) error {
	transfer, ok := loadOwnedTransfer(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	docs, err := repos.Document.ListByTransfer(transfer.ID)
	if err != nil {
		return internalError(c, "Failed to load documents")
	}
	return c.JSON(fiber.Map{"transfer": transfer, "documents": docs})
}

type createTransferRequest struct {
	PlayerUUID          string `json:"player_uuid"`
	Direction           string `json:"direction"`
	CounterpartyClub    string `json:"counterparty_club"`
	CounterpartyCountry string `json:"counterparty_country"`
	FeeCents            int64  `json:"fee_cents"`
	Currency            string `json:"currency"`
}

// HandleCreateTransfer opens a draft transfer for a player. Transfer
// workflows are a paid feature.
func HandleCreateTransfer(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}
	if !entitlements.ForTier(entitlements.Normalize(userCtx.Tier)).TransferWorkflows {
		return jsonError(c, fiber.StatusPaymentRequired, "limit_reached", "Transfer workflows require a higher plan")
	}

	var req createTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Direction != models.TransferDirectionIn && req.Direction != models.TransferDirectionOut {
		return badRequest(c, "direction must be in or out")
	}
	if req.CounterpartyClub == "" || len(req.CounterpartyCountry) != 2 {
		return badRequest(c, "counterparty_club and a 2-letter counterparty_country are required")
	}
	if req.FeeCents < 0 {
		return badRequest(c, "fee_cents must not be negative")
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	player, err := repos.Player.GetByUUID(req.PlayerUUID)
	if err != nil || player.AcademyID != userCtx.AcademyID {
		return notFound(c, "Player not found")
	}

	transfer := models.NewTransfer(userCtx.AcademyID, player.ID, req.Direction,
		req.CounterpartyClub, req.CounterpartyCountry, req.FeeCents, req.Currency)
	if err := repos.Transfer.Create(transfer); err != nil {
		return internalError(c, "Failed to create transfer")
	}
	return c.Status(fiber.StatusCreated).JSON(transfer)
}

// HandleSubmitTransfer moves a draft into SUBMITTED. For minors the FIFA
// protection documents must be attached and valid before submission.
func HandleSubmitTransfer(c *fiber.Ctx) error {
	transfer, ok := loadOwnedTransfer(c)
	if !ok {
		return nil
	}
	if !models.CanTransitionTransfer(transfer.Status, models.TransferStatusSubmitted) {
		return conflict(c, "Transfer cannot be submitted from its current state")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	player, err := repos.Player.GetByID(transfer.PlayerID)
	if err != nil {
		return internalError(c, "Failed to load player")
	}

	if player.IsMinor(time.Now()) {
		missing, err := missingMinorDocuments(repos, transfer.ID)
		if err != nil {
			return internalError(c, "Failed to check documents")
		}
		if len(missing) > 0 {
			return jsonError(c, fiber.StatusUnprocessableEntity, "documents_missing",
				"Minor transfer requires valid documents: "+strings.Join(missing, ", "))
		}
	}

	now := time.Now()
	transfer.Status = models.TransferStatusSubmitted
	transfer.AgreedAt = &now
	if err := repos.Transfer.Update(transfer); err != nil {
		return internalError(c, "Failed to submit transfer")
	}
	return c.JSON(transfer)
}

// HandleCompleteTransfer finalizes a submitted transfer: the player status
// flips, the fee is booked into the ledger, both in one transaction.
func HandleCompleteTransfer(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return forbidden(c, "Admin access required")
	}
	transfer, ok := loadOwnedTransfer(c)
	if !ok {
		return nil
	}
	if !models.CanTransitionTransfer(transfer.Status, models.TransferStatusCompleted) {
		return conflict(c, "Transfer cannot be completed from its current state")
	}

	userID := usercontext.GetUserID(c)
	db := database.GetDB()
	txErr := db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		now := time.Now()
		transfer.Status = models.TransferStatusCompleted
		transfer.CompletedAt = &now
		if err := repos.Transfer.Update(transfer); err != nil {
			return err
		}

		player, err := repos.Player.GetByID(transfer.PlayerID)
		if err != nil {
			return err
		}
		if transfer.Direction == models.TransferDirectionOut {
			player.Status = models.PlayerStatusTransferred
		} else {
			player.Status = models.PlayerStatusActive
		}
		if err := repos.Player.Update(player); err != nil {
			return err
		}

		if transfer.FeeCents == 0 {
			return nil
		}
		direction := models.LedgerDirectionCredit
		if transfer.Direction == models.TransferDirectionIn {
			direction = models.LedgerDirectionDebit
		}
		return repos.Ledger.Append(&models.LedgerEntry{
			AcademyID:   transfer.AcademyID,
			EntryDate:   now,
			Direction:   direction,
			Category:    models.LedgerCategoryTransferFee,
			AmountCents: transfer.FeeCents,
			Currency:    transfer.Currency,
			Memo:        "transfer fee " + transfer.CounterpartyClub,
			RecordedBy:  userID,
		})
	})
	if txErr != nil {
		log.Errorf("[Transfer] Completion failed for %s: %v", transfer.UUID, txErr)
		return internalError(c, "Failed to complete transfer")
	}
	return c.JSON(transfer)
}

type rejectTransferRequest struct {
	Reason string `json:"reason"`
}

// HandleRejectTransfer rejects a submitted transfer with a reason.
func HandleRejectTransfer(c *fiber.Ctx) error {
	if !usercontext.IsAdmin(c) {
		return forbidden(c, "Admin access required")
	}
	transfer, ok := loadOwnedTransfer(c)
	if !ok {
		return nil
	}
	if !models.CanTransitionTransfer(transfer.Status, models.TransferStatusRejected) {
		return conflict(c, "Transfer cannot be rejected from its current state")
	}

	var req rejectTransferRequest
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return badRequest(c, "reason is required")
	}

	transfer.Status = models.TransferStatusRejected
	transfer.RejectionReason = req.Reason
	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Transfer.Update(transfer); err != nil {
		return internalError(c, "Failed to reject transfer")
	}
	return c.JSON(transfer)
}

// minorProtectionDocTypes are required on every transfer of a player under 18.
var minorProtectionDocTypes = []string{
	models.DocTypeBirthCertificate,
	models.DocTypeGuardianConsent,
}

// missingMinorDocuments returns the required document types that are not
// attached to the transfer with a non-expired status.
func missingMinorDocuments(repos *repository.Repositories, transferID uint) ([]string, error) {
	docs, err := repos.Document.ListByTransfer(transferID)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool)
	for _, doc := range docs {
		if doc.Status != models.DocStatusExpired {
			present[doc.DocType] = true
		}
	}

	var missing []string
	for _, docType := range minorProtectionDocTypes {
		if !present[docType] {
			missing = append(missing, docType)
		}
	}
	return missing, nil
}

// loadOwnedTransfer resolves the :uuid route param and enforces tenancy.
func loadOwnedTransfer(c *fiber.Ctx) (*models.Transfer, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		_ = unauthorized(c)
		return nil, false
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	transfer, err := repos.Transfer.GetByUUID(c.Params("uuid"))
	if err != nil || transfer.AcademyID != userCtx.AcademyID {
		_ = notFound(c, "Transfer not found")
		return nil, false
	}
	return transfer, true
}
