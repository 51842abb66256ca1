package models

import "time"

// Subscription lifecycle states. A subscription is one row per lifetime:
// upgrades supersede the old row (status CANCELLED plus SupersededByID)
// instead of mutating it in place.
const (
	SubscriptionStatusPending   = "PENDING"
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusPastDue   = "PAST_DUE"
	SubscriptionStatusCancelled = "CANCELLED"
	SubscriptionStatusExpired   = "EXPIRED"
)

// AcademySubscription mirrors one billing-provider subscription (or one
// locally managed free/cash subscription) for an academy. Period boundaries
// mirror the provider's current billing period, not the subscription's
// lifetime.
type AcademySubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	AcademyID              uint       `gorm:"not null;index" json:"academy_id"`
	PlanID                 uint       `gorm:"not null;index" json:"plan_id"`
	Status                 string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	AutoRenew              bool       `gorm:"default:true" json:"auto_renew"`
	ProviderSubscriptionID *string    `gorm:"type:varchar(191);uniqueIndex;default:null" json:"-"`
	SupersededByID         *uint      `gorm:"index;default:null" json:"superseded_by_id,omitempty"`
	CancelReason           string     `gorm:"type:varchar(255);default:''" json:"cancel_reason,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsProviderManaged reports whether the row mirrors a provider subscription.
func (s *AcademySubscription) IsProviderManaged() bool {
	return s.ProviderSubscriptionID != nil && *s.ProviderSubscriptionID != ""
}

// IsEntitling reports whether the subscription currently grants plan
// entitlements. PAST_DUE keeps entitlements until the provider gives up.
func (s *AcademySubscription) IsEntitling() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusPastDue
}

// CanTransition reports whether the local state machine allows moving from
// one status to another. Reconciliation bypasses this check because the
// provider is authoritative for provider-managed rows; it guards only the
// local orchestration paths (cancel, renew, supersede).
func CanTransition(from, to string) bool {
	if from == to {
		return false
	}
	switch from {
	case SubscriptionStatusPending:
		return to == SubscriptionStatusActive || to == SubscriptionStatusCancelled || to == SubscriptionStatusExpired
	case SubscriptionStatusActive:
		return to == SubscriptionStatusPastDue || to == SubscriptionStatusCancelled || to == SubscriptionStatusExpired
	case SubscriptionStatusPastDue:
		return to == SubscriptionStatusActive || to == SubscriptionStatusCancelled || to == SubscriptionStatusExpired
	case SubscriptionStatusExpired:
		return to == SubscriptionStatusActive
	default:
		// CANCELLED is terminal.
		return false
	}
}
