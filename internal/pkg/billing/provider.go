package billing

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by provider clients and reconciliation.
var (
	// ErrProviderNotFound maps the provider's 404 responses so callers can
	// distinguish "resource gone" from transient failures.
	ErrProviderNotFound = errors.New("provider resource not found")

	// ErrAcademyNotConfigured marks academies without a linked provider
	// customer. Batch sync records it per academy instead of aborting.
	ErrAcademyNotConfigured = errors.New("academy has no billing provider customer")
)

// ProrationMode controls how the provider bills a mid-cycle price change.
type ProrationMode string

const (
	ProrationCreateProrations ProrationMode = "create_prorations"
	ProrationNone             ProrationMode = "none"
	ProrationAlwaysInvoice    ProrationMode = "always_invoice"
)

// ProviderClient is the injected capability surface of the billing provider.
// Reconciliation and orchestration depend only on this interface so they can
// be tested against a fake without network access.
type ProviderClient interface {
	CreateCustomer(ctx context.Context, name, email string) (*ProviderCustomer, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
	ListSubscriptions(ctx context.Context, customerID string, limit int) ([]ProviderSubscription, error)
	ListInvoices(ctx context.Context, subscriptionID string, limit int) ([]ProviderInvoice, error)
	UpdateSubscriptionPrice(ctx context.Context, subscriptionID, priceID string, proration ProrationMode) (*ProviderSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*ProviderSubscription, error)
}
