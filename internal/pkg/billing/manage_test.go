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

func newManager(db *gorm.DB, provider *fakeProvider) *Manager {
	reconciler := NewReconciler(db, provider)
	return NewManager(db, provider, reconciler)
}

// seedLocalSubscription inserts a locally managed subscription row.
func seedLocalSubscription(t *testing.T, db *gorm.DB, academyID, planID uint, status string) *models.AcademySubscription {
	t.Helper()

	start := periodStart
	end := periodStart.AddDate(0, 1, 0)
	sub := &models.AcademySubscription{
		AcademyID:          academyID,
		PlanID:             planID,
		Status:             status,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
		AutoRenew:          true,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestUpgradeProviderManagedSwapsPriceAndResyncs(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)
	newPlan := seedPlan(t, db, "Pro Monthly", "price_pro", 9900)

	result, err := newManager(db, provider).Upgrade(context.Background(), sub.AcademyID, newPlan.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, result.SubscriptionID)
	assert.False(t, result.CheckoutRequired)
	assert.Equal(t, 1, provider.updateCalls)

	// The targeted re-sync pulled the new price onto the same row.
	var after models.AcademySubscription
	require.NoError(t, db.First(&after, sub.ID).Error)
	assert.Equal(t, newPlan.ID, after.PlanID)
	assert.Nil(t, after.SupersededByID)

	actions := historyActions(t, db, sub.ID)
	assert.Contains(t, actions, models.HistoryActionSyncedUpdate)
	assert.Contains(t, actions, models.HistoryActionUpgraded)
}

func TestUpgradeLocalSupersedesOldRow(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	academy := seedAcademy(t, db, "cus_1")
	oldPlan := seedPlan(t, db, "Starter", "", 0)
	newPlan := seedPlan(t, db, "Club Cash", "", 4900)
	old := seedLocalSubscription(t, db, academy.ID, oldPlan.ID, models.SubscriptionStatusActive)

	result, err := newManager(db, provider).Upgrade(context.Background(), academy.ID, newPlan.ID)
	require.NoError(t, err)
	assert.False(t, result.CheckoutRequired)
	assert.NotEqual(t, old.ID, result.SubscriptionID)

	var oldAfter, replacement models.AcademySubscription
	require.NoError(t, db.First(&oldAfter, old.ID).Error)
	require.NoError(t, db.First(&replacement, result.SubscriptionID).Error)

	assert.Equal(t, models.SubscriptionStatusCancelled, oldAfter.Status)
	require.NotNil(t, oldAfter.SupersededByID)
	assert.Equal(t, replacement.ID, *oldAfter.SupersededByID)

	// A plan without provider billing activates immediately.
	assert.Equal(t, models.SubscriptionStatusActive, replacement.Status)
	assert.Equal(t, newPlan.ID, replacement.PlanID)
	assert.Equal(t, []string{models.HistoryActionUpgraded}, historyActions(t, db, replacement.ID))
}

func TestUpgradeToProviderPlanRequiresCheckout(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	academy := seedAcademy(t, db, "cus_1")
	oldPlan := seedPlan(t, db, "Starter", "", 0)
	newPlan := seedPlan(t, db, "Pro Monthly", "price_pro", 9900)
	seedLocalSubscription(t, db, academy.ID, oldPlan.ID, models.SubscriptionStatusActive)

	result, err := newManager(db, provider).Upgrade(context.Background(), academy.ID, newPlan.ID)
	require.NoError(t, err)
	assert.True(t, result.CheckoutRequired)

	var replacement models.AcademySubscription
	require.NoError(t, db.First(&replacement, result.SubscriptionID).Error)
	assert.Equal(t, models.SubscriptionStatusPending, replacement.Status)
	assert.Nil(t, replacement.CurrentPeriodStart)
}

func TestUpgradeWithoutActiveSubscription(t *testing.T) {
	db := newTestDB(t)
	academy := seedAcademy(t, db, "cus_1")
	plan := seedPlan(t, db, "Club", "", 4900)

	_, err := newManager(db, newFakeProvider()).Upgrade(context.Background(), academy.ID, plan.ID)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
}

func TestCancelProviderManagedGoesThroughProvider(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	err := newManager(db, provider).Cancel(context.Background(), sub.ID, false, "closing down")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.cancelCalls)

	var after models.AcademySubscription
	require.NoError(t, db.First(&after, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, after.Status)
	assert.Equal(t, "closing down", after.CancelReason)
	assert.Contains(t, historyActions(t, db, sub.ID), models.HistoryActionCancelled)
}

func TestCancelAtPeriodEndKeepsSubscriptionActive(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	err := newManager(db, provider).Cancel(context.Background(), sub.ID, true, "")
	require.NoError(t, err)

	var after models.AcademySubscription
	require.NoError(t, db.First(&after, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, after.Status)
	assert.False(t, after.AutoRenew, "cancel at period end turns off auto-renew")
}

func TestCancelLocalSubscription(t *testing.T) {
	db := newTestDB(t)
	academy := seedAcademy(t, db, "")
	plan := seedPlan(t, db, "Club Cash", "", 4900)
	sub := seedLocalSubscription(t, db, academy.ID, plan.ID, models.SubscriptionStatusActive)

	manager := newManager(db, newFakeProvider())
	require.NoError(t, manager.Cancel(context.Background(), sub.ID, false, "unpaid"))

	var after models.AcademySubscription
	require.NoError(t, db.First(&after, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusCancelled, after.Status)

	// CANCELLED is terminal.
	err := manager.Cancel(context.Background(), sub.ID, false, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRenewExpiredLocalSubscription(t *testing.T) {
	db := newTestDB(t)
	academy := seedAcademy(t, db, "")
	plan := seedPlan(t, db, "Club Cash", "", 4900)
	sub := seedLocalSubscription(t, db, academy.ID, plan.ID, models.SubscriptionStatusExpired)

	require.NoError(t, newManager(db, newFakeProvider()).Renew(context.Background(), sub.ID))

	var after models.AcademySubscription
	require.NoError(t, db.First(&after, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, after.Status)
	require.NotNil(t, after.CurrentPeriodStart)
	require.NotNil(t, after.CurrentPeriodEnd)
	assert.WithinDuration(t, time.Now().UTC(), *after.CurrentPeriodStart, time.Minute,
		"a late renewal starts a fresh period now")
	assert.True(t, after.CurrentPeriodEnd.Equal(after.CurrentPeriodStart.AddDate(0, 1, 0)))
	assert.Contains(t, historyActions(t, db, sub.ID), models.HistoryActionRenewed)
}

func TestRenewRejectsProviderManaged(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	err := newManager(db, provider).Renew(context.Background(), sub.ID)
	assert.ErrorIs(t, err, ErrProviderManaged)
}

func TestRecordAndProcessCashPayment(t *testing.T) {
	db := newTestDB(t)
	academy := seedAcademy(t, db, "")
	plan := seedPlan(t, db, "Club Cash", "", 4900)
	sub := seedLocalSubscription(t, db, academy.ID, plan.ID, models.SubscriptionStatusPending)
	manager := newManager(db, newFakeProvider())

	payment, err := manager.RecordCashPayment(context.Background(), sub.ID, 4900, "EUR", models.PaymentMethodCash, "receipt-17", "front desk")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Contains(t, historyActions(t, db, sub.ID), models.HistoryActionPaymentRecorded)

	require.NoError(t, manager.ProcessCashPayment(context.Background(), payment.ID, true, 42))

	var paymentAfter models.SubscriptionPayment
	require.NoError(t, db.First(&paymentAfter, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, paymentAfter.Status)
	require.NotNil(t, paymentAfter.PaidAt)
	require.NotNil(t, paymentAfter.ProcessedByID)
	assert.Equal(t, uint(42), *paymentAfter.ProcessedByID)

	// Confirmation writes the income into the ledger.
	var entry models.LedgerEntry
	require.NoError(t, db.Where("payment_id = ?", payment.ID).First(&entry).Error)
	assert.Equal(t, models.LedgerDirectionCredit, entry.Direction)
	assert.Equal(t, models.LedgerCategorySubscription, entry.Category)
	assert.Equal(t, int64(4900), entry.AmountCents)

	// A pending subscription activates once the payment clears.
	var subAfter models.AcademySubscription
	require.NoError(t, db.First(&subAfter, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, subAfter.Status)

	// Re-processing is rejected.
	err = manager.ProcessCashPayment(context.Background(), payment.ID, true, 42)
	assert.Error(t, err)
}

func TestProcessCashPaymentRejection(t *testing.T) {
	db := newTestDB(t)
	academy := seedAcademy(t, db, "")
	plan := seedPlan(t, db, "Club Cash", "", 4900)
	sub := seedLocalSubscription(t, db, academy.ID, plan.ID, models.SubscriptionStatusPending)
	manager := newManager(db, newFakeProvider())

	payment, err := manager.RecordCashPayment(context.Background(), sub.ID, 4900, "EUR", models.PaymentMethodBankTransfer, "", "")
	require.NoError(t, err)

	require.NoError(t, manager.ProcessCashPayment(context.Background(), payment.ID, false, 42))

	var paymentAfter models.SubscriptionPayment
	require.NoError(t, db.First(&paymentAfter, payment.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, paymentAfter.Status)

	var subAfter models.AcademySubscription
	require.NoError(t, db.First(&subAfter, sub.ID).Error)
	assert.Equal(t, models.SubscriptionStatusPending, subAfter.Status)

	var ledgerCount int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&ledgerCount).Error)
	assert.Zero(t, ledgerCount)
}

func TestRecordCashPaymentRejectsProviderManaged(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	sub := seedMirroredSubscription(t, db, provider)

	_, err := newManager(db, provider).RecordCashPayment(context.Background(), sub.ID, 4900, "EUR", models.PaymentMethodCash, "", "")
	assert.ErrorIs(t, err, ErrProviderManaged)
}
