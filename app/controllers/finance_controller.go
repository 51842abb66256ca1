package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/entitlements"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

type ledgerEntryRequest struct {
	EntryDate   string `json:"entry_date"` // YYYY-MM-DD
	Direction   string `json:"direction"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Memo        string `json:"memo"`
}

// HandleAppendLedgerEntry books one ledger entry. The ledger is append-only;
// mistakes are corrected with reversing entries, never edits.
func HandleAppendLedgerEntry(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	var req ledgerEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Direction != models.LedgerDirectionDebit && req.Direction != models.LedgerDirectionCredit {
		return badRequest(c, "direction must be debit or credit")
	}
	if !models.IsValidLedgerCategory(req.Category) {
		return badRequest(c, "Unknown category")
	}
	if req.AmountCents <= 0 {
		return badRequest(c, "amount_cents must be positive")
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	entryDate := time.Now()
	if req.EntryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EntryDate)
		if err != nil {
			return badRequest(c, "entry_date must be YYYY-MM-DD")
		}
		entryDate = parsed
	}

	entry := &models.LedgerEntry{
		AcademyID:   userCtx.AcademyID,
		EntryDate:   entryDate,
		Direction:   req.Direction,
		Category:    req.Category,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Memo:        req.Memo,
		RecordedBy:  userCtx.UserID,
	}
	repos := repository.GetGlobalFactory().GetRepositories()
	if err := repos.Ledger.Append(entry); err != nil {
		return internalError(c, "Failed to book entry")
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// HandleListLedgerEntries lists ledger entries within a date range.
func HandleListLedgerEntries(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	offset, limit := parsePagination(c)
	repos := repository.GetGlobalFactory().GetRepositories()
	entries, err := repos.Ledger.ListByAcademy(userCtx.AcademyID, from, to, offset, limit)
	if err != nil {
		return internalError(c, "Failed to load ledger")
	}
	return c.JSON(fiber.Map{"entries": entries, "count": len(entries)})
}

// HandleFinanceSummary aggregates the ledger by category and direction.
// Summary reports are a paid feature.
func HandleFinanceSummary(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}
	if !entitlements.ForTier(entitlements.Normalize(userCtx.Tier)).FinanceReports {
		return jsonError(c, fiber.StatusPaymentRequired, "limit_reached", "Finance reports require a higher plan")
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	// Dashboards poll this; a slow aggregation degrades to an empty summary
	// instead of holding the request.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	repos := repository.NewRepositories(database.GetDB().WithContext(ctx))
	summary, err := repos.Ledger.SummaryByCategory(userCtx.AcademyID, from, to)
	if err != nil {
		log.Warnf("[Finance] Summary query failed for academy %d: %v", userCtx.AcademyID, err)
		summary = []repository.LedgerCategorySummary{}
	}

	var credits, debits int64
	for _, row := range summary {
		switch row.Direction {
		case models.LedgerDirectionCredit:
			credits += row.AmountCents
		case models.LedgerDirectionDebit:
			debits += row.AmountCents
		}
	}
	return c.JSON(fiber.Map{
		"from":          from.Format("2006-01-02"),
		"to":            to.Format("2006-01-02"),
		"categories":    summary,
		"total_credits": credits,
		"total_debits":  debits,
		"net_cents":     credits - debits,
	})
}

// parseDateRange reads from/to query params, defaulting to the last 90 days.
func parseDateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -90)
	to := now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		to = parsed
	}
	if to.Before(from) {
		return from, to, fiber.NewError(fiber.StatusBadRequest, "to must not be before from")
	}
	return from, to, nil
}
