package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpass/fieldpass/app/models"
)

var periodStart = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func TestSyncAcademyCreatesLocalMirror(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	academy := seedAcademy(t, db, "cus_1")
	plan := seedPlan(t, db, "Club Monthly", "price_club", 4900)

	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)
	paidAt := periodStart.Add(time.Hour)
	provider.invoices["sub_1"] = []ProviderInvoice{
		{ID: "in_1", SubscriptionID: "sub_1", Status: "paid", AmountCents: 4900, Currency: "EUR", PaidAt: &paidAt},
		{ID: "in_2", SubscriptionID: "sub_1", Status: "open", AmountCents: 4900, Currency: "EUR"},
	}

	result := NewReconciler(db, provider).SyncAcademy(context.Background(), academy.ID)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Synced)

	var sub models.AcademySubscription
	require.NoError(t, db.Where("provider_subscription_id = ?", "sub_1").First(&sub).Error)
	assert.Equal(t, academy.ID, sub.AcademyID)
	assert.Equal(t, plan.ID, sub.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.AutoRenew)
	require.NotNil(t, sub.CurrentPeriodStart)
	assert.True(t, sub.CurrentPeriodStart.Equal(periodStart))

	assert.Equal(t, []string{models.HistoryActionSyncedCreate}, historyActions(t, db, sub.ID))

	// Only the paid invoice becomes a payment.
	var payments []models.SubscriptionPayment
	require.NoError(t, db.Where("subscription_id = ?", sub.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusCompleted, payments[0].Status)
	assert.Equal(t, models.PaymentMethodProvider, payments[0].Method)
	assert.Equal(t, int64(4900), payments[0].AmountCents)
	require.NotNil(t, payments[0].ProviderInvoiceID)
	assert.Equal(t, "in_1", *payments[0].ProviderInvoiceID)
}

func TestSyncAcademyIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	academy := seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)

	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)
	paidAt := periodStart.Add(time.Hour)
	provider.invoices["sub_1"] = []ProviderInvoice{
		{ID: "in_1", SubscriptionID: "sub_1", Status: "paid", AmountCents: 4900, Currency: "EUR", PaidAt: &paidAt},
	}

	reconciler := NewReconciler(db, provider)
	require.True(t, reconciler.SyncAcademy(context.Background(), academy.ID).Success)
	require.True(t, reconciler.SyncAcademy(context.Background(), academy.ID).Success)

	var subCount, historyCount, paymentCount int64
	require.NoError(t, db.Model(&models.AcademySubscription{}).Count(&subCount).Error)
	require.NoError(t, db.Model(&models.SubscriptionHistory{}).Count(&historyCount).Error)
	require.NoError(t, db.Model(&models.SubscriptionPayment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), subCount)
	assert.Equal(t, int64(1), historyCount, "a no-change sync must not append history")
	assert.Equal(t, int64(1), paymentCount, "invoice payments are deduplicated")
}

func TestSyncAcademyRecordsStatusChange(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	academy := seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)

	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)
	reconciler := NewReconciler(db, provider)
	require.True(t, reconciler.SyncAcademy(context.Background(), academy.ID).Success)

	sub := provider.subs["sub_1"]
	sub.Status = "past_due"
	provider.subs["sub_1"] = sub
	require.True(t, reconciler.SyncAcademy(context.Background(), academy.ID).Success)

	var local models.AcademySubscription
	require.NoError(t, db.Where("provider_subscription_id = ?", "sub_1").First(&local).Error)
	assert.Equal(t, models.SubscriptionStatusPastDue, local.Status)

	actions := historyActions(t, db, local.ID)
	require.Equal(t, []string{models.HistoryActionSyncedCreate, models.HistoryActionSyncedUpdate}, actions)

	var entry models.SubscriptionHistory
	require.NoError(t, db.Where("subscription_id = ? AND action = ?", local.ID, models.HistoryActionSyncedUpdate).First(&entry).Error)
	assert.Contains(t, entry.PayloadJSON, `"old_status":"ACTIVE"`)
	assert.Contains(t, entry.PayloadJSON, `"new_status":"PAST_DUE"`)
}

func TestSyncAcademyPartialFailure(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	academy := seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)

	provider.subs["sub_ok"] = providerSub("sub_ok", "cus_1", "price_club", "active", periodStart)
	provider.subs["sub_bad"] = providerSub("sub_bad", "cus_1", "price_unknown", "active", periodStart)

	result := NewReconciler(db, provider).SyncAcademy(context.Background(), academy.ID)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Synced)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "price_unknown")

	// The failing item must not block the good one.
	var count int64
	require.NoError(t, db.Model(&models.AcademySubscription{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncAcademyWithoutBillingCustomer(t *testing.T) {
	db := newTestDB(t)
	academy := seedAcademy(t, db, "")

	result := NewReconciler(db, newFakeProvider()).SyncAcademy(context.Background(), academy.ID)
	assert.False(t, result.Success)
	assert.Zero(t, result.Synced)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], ErrAcademyNotConfigured.Error())
}

func TestSyncAcademyInvoiceFailureDoesNotFailSubscription(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	academy := seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)

	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)
	provider.invoiceErr = errors.New("provider invoice API is down")

	result := NewReconciler(db, provider).SyncAcademy(context.Background(), academy.ID)
	assert.True(t, result.Success, "invoice failures are logged, not fatal")
	assert.Equal(t, 1, result.Synced)

	var subCount, paymentCount int64
	require.NoError(t, db.Model(&models.AcademySubscription{}).Count(&subCount).Error)
	require.NoError(t, db.Model(&models.SubscriptionPayment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), subCount)
	assert.Zero(t, paymentCount)
}

func TestSyncAllContinuesPastFailingAcademy(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	broken := seedAcademy(t, db, "cus_broken")
	seedAcademy(t, db, "cus_ok")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)

	provider.listErrFor["cus_broken"] = errors.New("rate limited")
	provider.subs["sub_ok"] = providerSub("sub_ok", "cus_ok", "price_club", "active", periodStart)

	result := NewReconciler(db, provider).SyncAll(context.Background())
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Synced)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], broken.UUID)
}

func TestSyncProviderSubscriptionTargeted(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)

	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)

	reconciler := NewReconciler(db, provider)
	require.NoError(t, reconciler.SyncProviderSubscription(context.Background(), "sub_1"))

	var local models.AcademySubscription
	require.NoError(t, db.Where("provider_subscription_id = ?", "sub_1").First(&local).Error)
	assert.Equal(t, models.SubscriptionStatusActive, local.Status)

	err := reconciler.SyncProviderSubscription(context.Background(), "sub_missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}
