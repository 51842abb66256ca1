package repository

import (
	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// transferRepository implements the TransferRepository interface
type transferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a new transfer repository instance
func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepository{db: db}
}

func (r *transferRepository) Create(transfer *models.Transfer) error {
	return r.db.Create(transfer).Error
}

func (r *transferRepository) GetByID(id uint) (*models.Transfer, error) {
	var transfer models.Transfer
	if err := r.db.First(&transfer, id).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) GetByUUID(uuid string) (*models.Transfer, error) {
	var transfer models.Transfer
	if err := r.db.Where("uuid = ?", uuid).First(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (r *transferRepository) ListByAcademy(academyID uint, offset, limit int) ([]models.Transfer, error) {
	var transfers []models.Transfer
	err := r.db.
		Where("academy_id = ?", academyID).
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&transfers).Error
	return transfers, err
}

func (r *transferRepository) ListByPlayer(playerID uint) ([]models.Transfer, error) {
	var transfers []models.Transfer
	err := r.db.Where("player_id = ?", playerID).Order("created_at DESC").Find(&transfers).Error
	return transfers, err
}

func (r *transferRepository) Update(transfer *models.Transfer) error {
	return r.db.Save(transfer).Error
}
