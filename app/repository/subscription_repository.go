package repository

import (
	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(sub *models.AcademySubscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) GetByID(id uint) (*models.AcademySubscription, error) {
	var sub models.AcademySubscription
	if err := r.db.First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(providerSubID string) (*models.AcademySubscription, error) {
	var sub models.AcademySubscription
	if err := r.db.Where("provider_subscription_id = ?", providerSubID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetActiveByAcademy(academyID uint) (*models.AcademySubscription, error) {
	var sub models.AcademySubscription
	err := r.db.
		Where("academy_id = ? AND status = ?", academyID, models.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByAcademy(academyID uint) ([]models.AcademySubscription, error) {
	var subs []models.AcademySubscription
	err := r.db.Where("academy_id = ?", academyID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) ListProviderManagedByAcademy(academyID uint) ([]models.AcademySubscription, error) {
	var subs []models.AcademySubscription
	err := r.db.
		Where("academy_id = ? AND provider_subscription_id IS NOT NULL AND provider_subscription_id <> ''", academyID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) Update(sub *models.AcademySubscription) error {
	return r.db.Save(sub).Error
}
