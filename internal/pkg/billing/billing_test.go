package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldpass/fieldpass/app/models"
)

// newTestDB opens an isolated in-memory database with the billing schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A :memory: database exists per connection, so the pool must stay at one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.Academy{},
		&models.SubscriptionPlan{},
		&models.AcademySubscription{},
		&models.SubscriptionPayment{},
		&models.SubscriptionHistory{},
		&models.LedgerEntry{},
		&models.BillingWebhookEvent{},
	)
	require.NoError(t, err)
	return db
}

// fakeProvider is an in-memory ProviderClient. Mutating calls change its
// stored state the way the real provider would, so a follow-up re-sync
// observes the effect.
type fakeProvider struct {
	subs     map[string]ProviderSubscription
	invoices map[string][]ProviderInvoice

	listErrFor map[string]error
	invoiceErr error

	getCalls    int
	updateCalls int
	cancelCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		subs:       make(map[string]ProviderSubscription),
		invoices:   make(map[string][]ProviderInvoice),
		listErrFor: make(map[string]error),
	}
}

func (f *fakeProvider) CreateCustomer(_ context.Context, name, email string) (*ProviderCustomer, error) {
	return &ProviderCustomer{ID: "cus_" + name, Name: name, Email: email}, nil
}

func (f *fakeProvider) GetSubscription(_ context.Context, subscriptionID string) (*ProviderSubscription, error) {
	f.getCalls++
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, ErrProviderNotFound)
	}
	return &sub, nil
}

func (f *fakeProvider) ListSubscriptions(_ context.Context, customerID string, limit int) ([]ProviderSubscription, error) {
	if err := f.listErrFor[customerID]; err != nil {
		return nil, err
	}
	var out []ProviderSubscription
	for _, sub := range f.subs {
		if sub.CustomerID == customerID && len(out) < limit {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeProvider) ListInvoices(_ context.Context, subscriptionID string, limit int) ([]ProviderInvoice, error) {
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	invoices := f.invoices[subscriptionID]
	if len(invoices) > limit {
		invoices = invoices[:limit]
	}
	return invoices, nil
}

func (f *fakeProvider) UpdateSubscriptionPrice(_ context.Context, subscriptionID, priceID string, _ ProrationMode) (*ProviderSubscription, error) {
	f.updateCalls++
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("update subscription %s: %w", subscriptionID, ErrProviderNotFound)
	}
	sub.PriceID = priceID
	f.subs[subscriptionID] = sub
	return &sub, nil
}

func (f *fakeProvider) CancelSubscription(_ context.Context, subscriptionID string, atPeriodEnd bool) (*ProviderSubscription, error) {
	f.cancelCalls++
	sub, ok := f.subs[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("cancel subscription %s: %w", subscriptionID, ErrProviderNotFound)
	}
	if atPeriodEnd {
		sub.CancelAtPeriodEnd = true
	} else {
		sub.Status = "canceled"
	}
	f.subs[subscriptionID] = sub
	return &sub, nil
}

// seedAcademy inserts a billing-configured academy.
func seedAcademy(t *testing.T, db *gorm.DB, customerID string) *models.Academy {
	t.Helper()

	academy, err := models.NewAcademy("Test Academy "+customerID, "DE", "Berlin", "office@example.com")
	require.NoError(t, err)
	if customerID != "" {
		academy.ProviderCustomerID = &customerID
	}
	require.NoError(t, db.Create(academy).Error)
	return academy
}

// seedPlan inserts a plan; pass an empty providerPriceID for a local plan.
func seedPlan(t *testing.T, db *gorm.DB, name, providerPriceID string, priceCents int64) *models.SubscriptionPlan {
	t.Helper()

	plan := &models.SubscriptionPlan{
		Name:            name,
		Tier:            "club",
		PriceCents:      priceCents,
		Currency:        "EUR",
		Interval:        models.PlanIntervalMonthly,
		ProviderPriceID: providerPriceID,
		IsActive:        true,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func providerSub(id, customerID, priceID, status string, start time.Time) ProviderSubscription {
	return ProviderSubscription{
		ID:                 id,
		CustomerID:         customerID,
		PriceID:            priceID,
		ItemID:             "si_" + id,
		Status:             status,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
	}
}

func historyActions(t *testing.T, db *gorm.DB, subscriptionID uint) []string {
	t.Helper()

	var entries []models.SubscriptionHistory
	require.NoError(t, db.Where("subscription_id = ?", subscriptionID).Order("id asc").Find(&entries).Error)
	actions := make([]string, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}
