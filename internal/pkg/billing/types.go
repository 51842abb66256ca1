package billing

import "time"

// ProviderSubscription is the provider-agnostic shape of a remote
// subscription as seen by reconciliation and the consistency checker.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	PriceID            string
	ItemID             string
	Status             string // provider spelling, lower-case
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// ProviderInvoice is the provider-agnostic shape of a remote invoice.
type ProviderInvoice struct {
	ID             string
	SubscriptionID string
	Status         string // "paid", "open", "void", ...
	AmountCents    int64
	Currency       string
	PaidAt         *time.Time
}

// ProviderCustomer is the provider-agnostic shape of a remote customer.
type ProviderCustomer struct {
	ID    string
	Name  string
	Email string
}

// SyncResult is the outcome of one reconciliation run. Partial failure is the
// norm: Errors collects per-item failures while the run continues.
type SyncResult struct {
	Success bool     `json:"success"`
	Synced  int      `json:"synced"`
	Errors  []string `json:"errors"`
}

// Merge folds another result into this one.
func (r *SyncResult) Merge(other SyncResult) {
	r.Synced += other.Synced
	r.Errors = append(r.Errors, other.Errors...)
	r.Success = len(r.Errors) == 0
}

// CheckResult is the outcome of a read-only consistency check.
type CheckResult struct {
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues"`
}
