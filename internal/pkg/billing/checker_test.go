package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
)

// seedMirroredSubscription syncs one provider subscription so local and
// remote state start out identical.
func seedMirroredSubscription(t *testing.T, db *gorm.DB, provider *fakeProvider) *models.AcademySubscription {
	t.Helper()

	academy := seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)
	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)

	result := NewReconciler(db, provider).SyncAcademy(context.Background(), academy.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)

	var sub models.AcademySubscription
	require.NoError(t, db.Where("provider_subscription_id = ?", "sub_1").First(&sub).Error)
	return &sub
}

func TestCheckAcademyConsistent(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	result, err := NewChecker(db, provider).CheckAcademy(context.Background(), sub.AcademyID)
	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Empty(t, result.Issues)
}

func TestCheckAcademyToleratesSubSecondDrift(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	drifted := periodStart.Add(500 * time.Millisecond)
	require.NoError(t, db.Model(sub).Update("current_period_start", drifted).Error)

	result, err := NewChecker(db, provider).CheckAcademy(context.Background(), sub.AcademyID)
	require.NoError(t, err)
	assert.True(t, result.Consistent, "issues: %v", result.Issues)
}

func TestCheckAcademyFlagsLargeDrift(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	drifted := periodStart.Add(2 * time.Second)
	require.NoError(t, db.Model(sub).Update("current_period_start", drifted).Error)

	result, err := NewChecker(db, provider).CheckAcademy(context.Background(), sub.AcademyID)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "current_period_start drift")
}

func TestCheckAcademyFlagsStatusMismatch(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	psub := provider.subs["sub_1"]
	psub.Status = "past_due"
	provider.subs["sub_1"] = psub

	result, err := NewChecker(db, provider).CheckAcademy(context.Background(), sub.AcademyID)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "status mismatch")
}

func TestCheckAcademyFlagsMissingProviderSubscription(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	delete(provider.subs, "sub_1")

	result, err := NewChecker(db, provider).CheckAcademy(context.Background(), sub.AcademyID)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "not found in provider")
}

func TestCheckAcademyIsReadOnly(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	psub := provider.subs["sub_1"]
	psub.Status = "past_due"
	provider.subs["sub_1"] = psub

	_, err := NewChecker(db, provider).CheckAcademy(context.Background(), sub.AcademyID)
	require.NoError(t, err)

	// The mismatch is only reported, never repaired.
	var after models.AcademySubscription
	require.NoError(t, db.First(&after, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, after.Status)
	assert.Equal(t, []string{models.HistoryActionSyncedCreate}, historyActions(t, db, sub.ID))
}
