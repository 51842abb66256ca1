package repository

import (
	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// academyRepository implements the AcademyRepository interface
type academyRepository struct {
	db *gorm.DB
}

// NewAcademyRepository creates a new academy repository instance
func NewAcademyRepository(db *gorm.DB) AcademyRepository {
	return &academyRepository{db: db}
}

func (r *academyRepository) Create(academy *models.Academy) error {
	return r.db.Create(academy).Error
}

func (r *academyRepository) GetByID(id uint) (*models.Academy, error) {
	var academy models.Academy
	if err := r.db.First(&academy, id).Error; err != nil {
		return nil, err
	}
	return &academy, nil
}

func (r *academyRepository) GetByUUID(uuid string) (*models.Academy, error) {
	var academy models.Academy
	if err := r.db.Where("uuid = ?", uuid).First(&academy).Error; err != nil {
		return nil, err
	}
	return &academy, nil
}

func (r *academyRepository) GetByProviderCustomerID(customerID string) (*models.Academy, error) {
	var academy models.Academy
	if err := r.db.Where("provider_customer_id = ?", customerID).First(&academy).Error; err != nil {
		return nil, err
	}
	return &academy, nil
}

func (r *academyRepository) Update(academy *models.Academy) error {
	return r.db.Save(academy).Error
}

func (r *academyRepository) SetProviderCustomerID(id uint, customerID string) error {
	return r.db.Model(&models.Academy{}).
		Where("id = ?", id).
		Update("provider_customer_id", customerID).Error
}

// ListBillingConfigured returns every academy with a linked provider customer.
func (r *academyRepository) ListBillingConfigured() ([]models.Academy, error) {
	var academies []models.Academy
	err := r.db.
		Where("provider_customer_id IS NOT NULL AND provider_customer_id <> ''").
		Find(&academies).Error
	return academies, err
}

func (r *academyRepository) List(offset, limit int) ([]models.Academy, error) {
	var academies []models.Academy
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&academies).Error
	return academies, err
}

func (r *academyRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Academy{}).Count(&count).Error
	return count, err
}
