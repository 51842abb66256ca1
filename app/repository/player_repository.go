package repository

import (
	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// playerRepository implements the PlayerRepository interface
type playerRepository struct {
	db *gorm.DB
}

// NewPlayerRepository creates a new player repository instance
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) Create(player *models.Player) error {
	return r.db.Create(player).Error
}

func (r *playerRepository) GetByID(id uint) (*models.Player, error) {
	var player models.Player
	if err := r.db.First(&player, id).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) GetByUUID(uuid string) (*models.Player, error) {
	var player models.Player
	if err := r.db.Where("uuid = ?", uuid).First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) ListByAcademy(academyID uint, offset, limit int) ([]models.Player, error) {
	var players []models.Player
	err := r.db.
		Where("academy_id = ?", academyID).
		Offset(offset).Limit(limit).
		Order("last_name ASC, first_name ASC").
		Find(&players).Error
	return players, err
}

// CountByAcademy backs the per-plan player entitlement check.
func (r *playerRepository) CountByAcademy(academyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Player{}).
		Where("academy_id = ? AND status = ?", academyID, models.PlayerStatusActive).
		Count(&count).Error
	return count, err
}

func (r *playerRepository) Update(player *models.Player) error {
	return r.db.Save(player).Error
}

func (r *playerRepository) Delete(id uint) error {
	return r.db.Delete(&models.Player{}, id).Error
}

func (r *playerRepository) Search(academyID uint, query string) ([]models.Player, error) {
	var players []models.Player
	like := "%" + query + "%"
	err := r.db.
		Where("academy_id = ? AND (first_name LIKE ? OR last_name LIKE ?)", academyID, like, like).
		Limit(50).
		Find(&players).Error
	return players, err
}
