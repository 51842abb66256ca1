package repository

import (
	"time"

	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// ledgerRepository implements the LedgerRepository interface. Entries are
// append-only; corrections are reversing entries, never updates.
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository instance
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(entry *models.LedgerEntry) error {
	return r.db.Create(entry).Error
}

func (r *ledgerRepository) ListByAcademy(academyID uint, from, to time.Time, offset, limit int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.
		Where("academy_id = ? AND entry_date >= ? AND entry_date <= ?", academyID, from, to).
		Offset(offset).Limit(limit).
		Order("entry_date DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

// SummaryByCategory aggregates entry totals per category and direction.
func (r *ledgerRepository) SummaryByCategory(academyID uint, from, to time.Time) ([]LedgerCategorySummary, error) {
	var rows []LedgerCategorySummary
	err := r.db.Model(&models.LedgerEntry{}).
		Select("category, direction, COALESCE(SUM(amount_cents), 0) AS amount_cents, COUNT(*) AS entries").
		Where("academy_id = ? AND entry_date >= ? AND entry_date <= ?", academyID, from, to).
		Group("category, direction").
		Order("category ASC").
		Scan(&rows).Error
	return rows, err
}
