package models

import "time"

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"

	PaymentMethodProvider     = "provider"
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
)

// SubscriptionPayment records one payment against a subscription. Provider
// payments are created by reconciliation/webhooks from paid invoices and are
// deduplicated on ProviderInvoiceID. Cash and bank-transfer payments are
// recorded by academy admins and stay PENDING until manually confirmed.
type SubscriptionPayment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint       `gorm:"not null;index" json:"subscription_id"`
	AmountCents       int64      `gorm:"not null" json:"amount_cents"`
	Currency          string     `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Method            string     `gorm:"type:varchar(20);not null;default:'provider'" json:"method"`
	Status            string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ProviderInvoiceID *string    `gorm:"type:varchar(191);uniqueIndex;default:null" json:"-"`
	Reference         string     `gorm:"type:varchar(100);default:''" json:"reference"`
	Notes             string     `gorm:"type:text" json:"notes"`
	ProcessedByID     *uint      `gorm:"index;default:null" json:"processed_by_id,omitempty"`
	PaidAt            *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
