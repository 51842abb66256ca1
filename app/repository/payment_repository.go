package repository

import (
	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *models.SubscriptionPayment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepository) GetByID(id uint) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	if err := r.db.First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ExistsByProviderInvoiceID is the invoice dedup check used by reconciliation.
func (r *paymentRepository) ExistsByProviderInvoiceID(invoiceID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.SubscriptionPayment{}).
		Where("provider_invoice_id = ?", invoiceID).
		Count(&count).Error
	return count > 0, err
}

func (r *paymentRepository) ListBySubscription(subscriptionID uint) ([]models.SubscriptionPayment, error) {
	var payments []models.SubscriptionPayment
	err := r.db.Where("subscription_id = ?", subscriptionID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Update(payment *models.SubscriptionPayment) error {
	return r.db.Save(payment).Error
}
