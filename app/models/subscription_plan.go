package models

import (
	"strings"
	"time"
)

const (
	PlanIntervalMonthly  = "monthly"
	PlanIntervalYearly   = "yearly"
	PlanIntervalLifetime = "lifetime"
	PlanIntervalOneTime  = "one_time"
)

// SubscriptionPlan is a purchasable tier. Price, currency and interval are
// treated as immutable once any subscription references the plan; the
// repository enforces this so historical subscriptions keep their original
// terms (price changes require a new plan row).
type SubscriptionPlan struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:varchar(100);not null" json:"name"`
	Tier            string    `gorm:"type:varchar(20);not null;index" json:"tier"`
	Description     string    `gorm:"type:text" json:"description"`
	PriceCents      int64     `gorm:"not null" json:"price_cents"`
	Currency        string    `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Interval        string    `gorm:"type:varchar(16);not null;default:'monthly'" json:"interval"`
	ProviderPriceID string    `gorm:"type:varchar(191);index;default:''" json:"-"`
	IsActive        bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsProviderManaged reports whether the plan is billed through the external
// provider. Plans without a provider price id are local (free or cash-only).
func (p *SubscriptionPlan) IsProviderManaged() bool {
	return p.ProviderPriceID != ""
}

// NormalizePlanInterval maps arbitrary interval spellings to the local enum.
func NormalizePlanInterval(interval string) string {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "month", "monthly":
		return PlanIntervalMonthly
	case "year", "yearly", "annual":
		return PlanIntervalYearly
	case "lifetime":
		return PlanIntervalLifetime
	case "one_time", "once":
		return PlanIntervalOneTime
	default:
		return PlanIntervalMonthly
	}
}
