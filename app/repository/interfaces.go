package repository

import (
	"time"

	"github.com/fieldpass/fieldpass/app/models"
)

// AcademyRepository defines the interface for academy-related database operations
type AcademyRepository interface {
	Create(academy *models.Academy) error
	GetByID(id uint) (*models.Academy, error)
	GetByUUID(uuid string) (*models.Academy, error)
	GetByProviderCustomerID(customerID string) (*models.Academy, error)
	Update(academy *models.Academy) error
	SetProviderCustomerID(id uint, customerID string) error
	ListBillingConfigured() ([]models.Academy, error)
	List(offset, limit int) ([]models.Academy, error)
	Count() (int64, error)
}

// PlanRepository defines the interface for subscription plan operations.
// Update refuses to change price, currency or interval once any subscription
// references the plan.
type PlanRepository interface {
	Create(plan *models.SubscriptionPlan) error
	GetByID(id uint) (*models.SubscriptionPlan, error)
	GetByProviderPriceID(priceID string) (*models.SubscriptionPlan, error)
	ListActive() ([]models.SubscriptionPlan, error)
	Update(plan *models.SubscriptionPlan) error
	Deactivate(id uint) error
	IsReferenced(id uint) (bool, error)
}

// SubscriptionRepository defines the interface for academy subscription rows
type SubscriptionRepository interface {
	Create(sub *models.AcademySubscription) error
	GetByID(id uint) (*models.AcademySubscription, error)
	GetByProviderSubscriptionID(providerSubID string) (*models.AcademySubscription, error)
	GetActiveByAcademy(academyID uint) (*models.AcademySubscription, error)
	ListByAcademy(academyID uint) ([]models.AcademySubscription, error)
	ListProviderManagedByAcademy(academyID uint) ([]models.AcademySubscription, error)
	Update(sub *models.AcademySubscription) error
}

// PaymentRepository defines the interface for subscription payments
type PaymentRepository interface {
	Create(payment *models.SubscriptionPayment) error
	GetByID(id uint) (*models.SubscriptionPayment, error)
	ExistsByProviderInvoiceID(invoiceID string) (bool, error)
	ListBySubscription(subscriptionID uint) ([]models.SubscriptionPayment, error)
	Update(payment *models.SubscriptionPayment) error
}

// HistoryRepository appends and reads the append-only subscription audit log.
// There is intentionally no update or delete.
type HistoryRepository interface {
	Append(subscriptionID uint, action string, payload any) error
	ListBySubscription(subscriptionID uint) ([]models.SubscriptionHistory, error)
	ListByAcademy(academyID uint, limit int) ([]models.SubscriptionHistory, error)
	CountBySubscription(subscriptionID uint) (int64, error)
}

// UserRepository defines the interface for staff user operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
	ListByAcademy(academyID uint) ([]models.User, error)
	CountByAcademy(academyID uint) (int64, error)
}

// PlayerRepository defines the interface for player operations
type PlayerRepository interface {
	Create(player *models.Player) error
	GetByID(id uint) (*models.Player, error)
	GetByUUID(uuid string) (*models.Player, error)
	ListByAcademy(academyID uint, offset, limit int) ([]models.Player, error)
	CountByAcademy(academyID uint) (int64, error)
	Update(player *models.Player) error
	Delete(id uint) error
	Search(academyID uint, query string) ([]models.Player, error)
}

// TransferRepository defines the interface for transfer operations
type TransferRepository interface {
	Create(transfer *models.Transfer) error
	GetByID(id uint) (*models.Transfer, error)
	GetByUUID(uuid string) (*models.Transfer, error)
	ListByAcademy(academyID uint, offset, limit int) ([]models.Transfer, error)
	ListByPlayer(playerID uint) ([]models.Transfer, error)
	Update(transfer *models.Transfer) error
}

// DocumentRepository defines the interface for compliance document metadata
type DocumentRepository interface {
	Create(doc *models.ComplianceDocument) error
	GetByUUID(uuid string) (*models.ComplianceDocument, error)
	ListByAcademy(academyID uint, offset, limit int) ([]models.ComplianceDocument, error)
	ListByTransfer(transferID uint) ([]models.ComplianceDocument, error)
	ListExpiringBefore(t time.Time) ([]models.ComplianceDocument, error)
	SumSizeByAcademy(academyID uint) (int64, error)
	UpdateStatus(id uint, status string) error
	Delete(id uint) error
}

// LedgerRepository appends and aggregates bookkeeping entries. Append-only.
type LedgerRepository interface {
	Append(entry *models.LedgerEntry) error
	ListByAcademy(academyID uint, from, to time.Time, offset, limit int) ([]models.LedgerEntry, error)
	SummaryByCategory(academyID uint, from, to time.Time) ([]LedgerCategorySummary, error)
}

// LedgerCategorySummary is one aggregation row of the finance summary.
type LedgerCategorySummary struct {
	Category    string `json:"category"`
	Direction   string `json:"direction"`
	AmountCents int64  `json:"amount_cents"`
	Entries     int64  `json:"entries"`
}
