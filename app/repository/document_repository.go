package repository

import (
	"time"

	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// documentRepository implements the DocumentRepository interface
type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new document repository instance
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(doc *models.ComplianceDocument) error {
	return r.db.Create(doc).Error
}

func (r *documentRepository) GetByUUID(uuid string) (*models.ComplianceDocument, error) {
	var doc models.ComplianceDocument
	if err := r.db.Where("uuid = ?", uuid).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) ListByAcademy(academyID uint, offset, limit int) ([]models.ComplianceDocument, error) {
	var docs []models.ComplianceDocument
	err := r.db.
		Where("academy_id = ?", academyID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *documentRepository) ListByTransfer(transferID uint) ([]models.ComplianceDocument, error) {
	var docs []models.ComplianceDocument
	err := r.db.Where("transfer_id = ?", transferID).Find(&docs).Error
	return docs, err
}

// ListExpiringBefore feeds the nightly expiry-reminder scan.
func (r *documentRepository) ListExpiringBefore(t time.Time) ([]models.ComplianceDocument, error) {
	var docs []models.ComplianceDocument
	err := r.db.
		Where("expires_at IS NOT NULL AND expires_at < ? AND status <> ?", t, models.DocStatusExpired).
		Find(&docs).Error
	return docs, err
}

// SumSizeByAcademy backs the per-plan document storage entitlement check.
func (r *documentRepository) SumSizeByAcademy(academyID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.ComplianceDocument{}).
		Where("academy_id = ?", academyID).
		Select("COALESCE(SUM(size_bytes), 0)").
		Scan(&total).Error
	return total, err
}

func (r *documentRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.ComplianceDocument{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *documentRepository) Delete(id uint) error {
	return r.db.Delete(&models.ComplianceDocument{}, id).Error
}
