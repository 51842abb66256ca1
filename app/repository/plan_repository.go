package repository

import (
	"errors"

	"github.com/fieldpass/fieldpass/app/models"
	"gorm.io/gorm"
)

// ErrPlanImmutable is returned when a price/currency/interval change is
// attempted on a plan that subscriptions already reference.
var ErrPlanImmutable = errors.New("plan terms are immutable once referenced by a subscription")

// planRepository implements the PlanRepository interface
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(plan *models.SubscriptionPlan) error {
	plan.Interval = models.NormalizePlanInterval(plan.Interval)
	return r.db.Create(plan).Error
}

func (r *planRepository) GetByID(id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) GetByProviderPriceID(priceID string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.Where("provider_price_id = ?", priceID).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) ListActive() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.Where("is_active = ?", true).Order("price_cents ASC").Find(&plans).Error
	return plans, err
}

// Update saves plan changes. Terms (price, currency, interval, provider price
// id) are frozen once any subscription references the plan, so historical
// subscriptions cannot be silently repriced.
func (r *planRepository) Update(plan *models.SubscriptionPlan) error {
	var current models.SubscriptionPlan
	if err := r.db.First(&current, plan.ID).Error; err != nil {
		return err
	}

	termsChanged := current.PriceCents != plan.PriceCents ||
		current.Currency != plan.Currency ||
		current.Interval != plan.Interval ||
		current.ProviderPriceID != plan.ProviderPriceID
	if termsChanged {
		referenced, err := r.IsReferenced(plan.ID)
		if err != nil {
			return err
		}
		if referenced {
			return ErrPlanImmutable
		}
	}
	return r.db.Save(plan).Error
}

func (r *planRepository) Deactivate(id uint) error {
	return r.db.Model(&models.SubscriptionPlan{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *planRepository) IsReferenced(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.AcademySubscription{}).
		Where("plan_id = ?", id).
		Count(&count).Error
	return count > 0, err
}
