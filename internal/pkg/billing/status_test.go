package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldpass/fieldpass/app/models"
)

func TestStatusFromProvider(t *testing.T) {
	assert.Equal(t, models.SubscriptionStatusActive, StatusFromProvider("active"))
	assert.Equal(t, models.SubscriptionStatusActive, StatusFromProvider("trialing"))
	assert.Equal(t, models.SubscriptionStatusPastDue, StatusFromProvider("past_due"))
	assert.Equal(t, models.SubscriptionStatusPastDue, StatusFromProvider("unpaid"))
	assert.Equal(t, models.SubscriptionStatusCancelled, StatusFromProvider("canceled"))
	assert.Equal(t, models.SubscriptionStatusExpired, StatusFromProvider("incomplete_expired"))
	assert.Equal(t, models.SubscriptionStatusPending, StatusFromProvider("incomplete"))

	// Unknown provider states fall back to PENDING rather than guessing.
	assert.Equal(t, models.SubscriptionStatusPending, StatusFromProvider("paused"))
	assert.Equal(t, models.SubscriptionStatusPending, StatusFromProvider(""))

	assert.Equal(t, models.SubscriptionStatusActive, StatusFromProvider(" Active "))
}

func TestStatusesEquivalent(t *testing.T) {
	assert.True(t, statusesEquivalent(models.SubscriptionStatusActive, "active"))
	assert.True(t, statusesEquivalent(models.SubscriptionStatusActive, "trialing"))
	assert.False(t, statusesEquivalent(models.SubscriptionStatusActive, "past_due"))
	assert.False(t, statusesEquivalent(models.SubscriptionStatusCancelled, "active"))
}

func TestNextPeriodEnd(t *testing.T) {
	anchor := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, anchor.AddDate(0, 1, 0), NextPeriodEnd(models.PlanIntervalMonthly, anchor))
	assert.Equal(t, anchor.AddDate(1, 0, 0), NextPeriodEnd(models.PlanIntervalYearly, anchor))
	assert.Equal(t, anchor.AddDate(100, 0, 0), NextPeriodEnd(models.PlanIntervalLifetime, anchor))
	assert.Equal(t, anchor.AddDate(100, 0, 0), NextPeriodEnd(models.PlanIntervalOneTime, anchor))

	// Unknown intervals bill monthly.
	assert.Equal(t, anchor.AddDate(0, 1, 0), NextPeriodEnd("weekly", anchor))
}

func TestTimesClose(t *testing.T) {
	a := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(800 * time.Millisecond)
	c := a.Add(3 * time.Second)

	assert.True(t, timesClose(&a, &a, 0))
	assert.True(t, timesClose(&a, &b, time.Second))
	assert.True(t, timesClose(&b, &a, time.Second))
	assert.False(t, timesClose(&a, &c, time.Second))

	assert.True(t, timesClose(nil, nil, time.Second))
	assert.False(t, timesClose(&a, nil, time.Second))
	assert.False(t, timesClose(nil, &a, time.Second))
}
