package models

import "time"

const (
	LedgerDirectionDebit  = "debit"
	LedgerDirectionCredit = "credit"

	LedgerCategorySubscription = "subscription"
	LedgerCategoryTransferFee  = "transfer_fee"
	LedgerCategoryWages        = "wages"
	LedgerCategoryFacilities   = "facilities"
	LedgerCategoryEquipment    = "equipment"
	LedgerCategoryTravel       = "travel"
	LedgerCategoryOther        = "other"
)

// LedgerEntry is an append-only bookkeeping record for an academy. Rows are
// never updated or deleted; corrections are entered as reversing entries.
type LedgerEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AcademyID   uint      `gorm:"not null;index" json:"academy_id"`
	EntryDate   time.Time `gorm:"type:date;not null;index" json:"entry_date"`
	Direction   string    `gorm:"type:varchar(6);not null" json:"direction"`
	Category    string    `gorm:"type:varchar(30);not null;index" json:"category"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Memo        string    `gorm:"type:varchar(255);default:''" json:"memo"`
	PaymentID   *uint     `gorm:"index;default:null" json:"payment_id,omitempty"`
	RecordedBy  uint      `gorm:"index" json:"recorded_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// IsValidLedgerCategory reports whether the given category is known.
func IsValidLedgerCategory(c string) bool {
	switch c {
	case LedgerCategorySubscription, LedgerCategoryTransferFee, LedgerCategoryWages,
		LedgerCategoryFacilities, LedgerCategoryEquipment, LedgerCategoryTravel, LedgerCategoryOther:
		return true
	}
	return false
}
