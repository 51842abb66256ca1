package repository

import (
	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// historyRepository implements the HistoryRepository interface. The audit log
// is append-only; no update or delete exists on purpose.
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository instance
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Append(subscriptionID uint, action string, payload any) error {
	entry, err := models.NewHistoryEntry(subscriptionID, action, payload)
	if err != nil {
		return err
	}
	return r.db.Create(entry).Error
}

func (r *historyRepository) ListBySubscription(subscriptionID uint) ([]models.SubscriptionHistory, error) {
	var entries []models.SubscriptionHistory
	err := r.db.Where("subscription_id = ?", subscriptionID).Order("created_at ASC, id ASC").Find(&entries).Error
	return entries, err
}

// ListByAcademy returns the newest audit entries across all of an academy's
// subscriptions.
func (r *historyRepository) ListByAcademy(academyID uint, limit int) ([]models.SubscriptionHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.SubscriptionHistory
	err := r.db.
		Joins("JOIN academy_subscriptions ON academy_subscriptions.id = subscription_histories.subscription_id").
		Where("academy_subscriptions.academy_id = ?", academyID).
		Order("subscription_histories.created_at DESC, subscription_histories.id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *historyRepository) CountBySubscription(subscriptionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SubscriptionHistory{}).
		Where("subscription_id = ?", subscriptionID).
		Count(&count).Error
	return count, err
}
