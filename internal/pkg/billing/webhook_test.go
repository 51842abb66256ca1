package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpass/fieldpass/app/models"
)

func subscriptionEvent(eventID, eventType, subscriptionID string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":%q,"data":{"object":{"id":%q,"object":"subscription"}}}`,
		eventID, eventType, subscriptionID))
}

func invoiceEvent(eventID, eventType, invoiceID, subscriptionID string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":%q,"data":{"object":{"id":%q,"object":"invoice","subscription":%q}}}`,
		eventID, eventType, invoiceID, subscriptionID))
}

func TestWebhookTriggersTargetedResync(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)
	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)

	processor := NewWebhookProcessor(db, NewReconciler(db, provider))
	payload := subscriptionEvent("evt_1", "customer.subscription.created", "sub_1")
	require.NoError(t, processor.HandleEvent(context.Background(), payload, true))

	// The local mirror comes from the re-sync, not from the event payload.
	var sub models.AcademySubscription
	require.NoError(t, db.Where("provider_subscription_id = ?", "sub_1").First(&sub).Error)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)

	var event models.BillingWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_1").First(&event).Error)
	assert.NotNil(t, event.ProcessedAt)
	assert.Empty(t, event.ProcessingError)
}

func TestWebhookRedeliveryIsIgnored(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)
	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)

	processor := NewWebhookProcessor(db, NewReconciler(db, provider))
	payload := subscriptionEvent("evt_1", "customer.subscription.updated", "sub_1")
	require.NoError(t, processor.HandleEvent(context.Background(), payload, true))
	getsAfterFirst := provider.getCalls

	require.NoError(t, processor.HandleEvent(context.Background(), payload, true))

	var eventCount int64
	require.NoError(t, db.Model(&models.BillingWebhookEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
	assert.Equal(t, getsAfterFirst, provider.getCalls, "redelivery must not re-sync")
}

func TestWebhookInvoiceEventResyncsParentSubscription(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	seedAcademy(t, db, "cus_1")
	seedPlan(t, db, "Club Monthly", "price_club", 4900)
	provider.subs["sub_1"] = providerSub("sub_1", "cus_1", "price_club", "active", periodStart)
	paidAt := periodStart.Add(time.Hour)
	provider.invoices["sub_1"] = []ProviderInvoice{
		{ID: "in_1", SubscriptionID: "sub_1", Status: "paid", AmountCents: 4900, Currency: "EUR", PaidAt: &paidAt},
	}

	processor := NewWebhookProcessor(db, NewReconciler(db, provider))
	payload := invoiceEvent("evt_inv", "invoice.paid", "in_1", "sub_1")
	require.NoError(t, processor.HandleEvent(context.Background(), payload, true))

	var paymentCount int64
	require.NoError(t, db.Model(&models.SubscriptionPayment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), paymentCount)
}

func TestWebhookIrrelevantEventIsStoredButNotProcessed(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()

	processor := NewWebhookProcessor(db, NewReconciler(db, provider))
	payload := []byte(`{"id":"evt_other","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)
	require.NoError(t, processor.HandleEvent(context.Background(), payload, true))

	var event models.BillingWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_other").First(&event).Error)
	assert.NotNil(t, event.ProcessedAt)
	assert.Zero(t, provider.getCalls)
}

func TestWebhookInvalidSignatureIsStoredForAudit(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()

	processor := NewWebhookProcessor(db, NewReconciler(db, provider))
	payload := subscriptionEvent("evt_forged", "customer.subscription.updated", "sub_1")
	require.NoError(t, processor.HandleEvent(context.Background(), payload, false))

	var event models.BillingWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_forged").First(&event).Error)
	assert.False(t, event.SignatureValid)
	assert.Zero(t, provider.getCalls, "unverified events are never processed")
}

func TestWebhookProcessingFailureIsRecordedAndReturned(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()

	// Event references a subscription the provider no longer returns.
	processor := NewWebhookProcessor(db, NewReconciler(db, provider))
	payload := subscriptionEvent("evt_gone", "customer.subscription.deleted", "sub_gone")
	err := processor.HandleEvent(context.Background(), payload, true)
	require.Error(t, err)

	var event models.BillingWebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_gone").First(&event).Error)
	assert.NotEmpty(t, event.ProcessingError)
}

func TestWebhookRejectsPayloadWithoutEventID(t *testing.T) {
	db := newTestDB(t)
	processor := NewWebhookProcessor(db, NewReconciler(db, newFakeProvider()))

	err := processor.HandleEvent(context.Background(), []byte(`{"type":"invoice.paid"}`), true)
	assert.Error(t, err)
}
