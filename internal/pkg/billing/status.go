package billing

import (
	"strings"
	"time"

	"github.com/fieldpass/fieldpass/app/models"
)

// StatusFromProvider maps the provider's lower-case status enum onto the
// local upper-case subscription states.
func StatusFromProvider(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return models.SubscriptionStatusActive
	case "past_due", "unpaid":
		return models.SubscriptionStatusPastDue
	case "canceled", "cancelled":
		return models.SubscriptionStatusCancelled
	case "incomplete":
		return models.SubscriptionStatusPending
	case "incomplete_expired", "expired":
		return models.SubscriptionStatusExpired
	default:
		return models.SubscriptionStatusPending
	}
}

// statusesEquivalent compares a local status with a provider status without
// caring about case or spelling differences.
func statusesEquivalent(local, provider string) bool {
	return strings.EqualFold(local, StatusFromProvider(provider))
}

// NextPeriodEnd computes the next billing-period boundary one cycle forward
// from the given anchor. Lifetime and one-time plans get a far-future end.
func NextPeriodEnd(interval string, from time.Time) time.Time {
	switch interval {
	case models.PlanIntervalYearly:
		return from.AddDate(1, 0, 0)
	case models.PlanIntervalLifetime, models.PlanIntervalOneTime:
		return from.AddDate(100, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// timesClose reports whether two timestamps are within the given tolerance.
// Nil pointers only match nil.
func timesClose(a, b *time.Time, tolerance time.Duration) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	d := a.Sub(*b)
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
