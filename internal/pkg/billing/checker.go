package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
)

// driftTolerance is how far local and provider period timestamps may diverge
// before the checker flags them. Sub-second clock skew between our DB and the
// provider is expected and not actionable.
const driftTolerance = time.Second

// Checker compares the local mirror against the provider without writing
// anything. It is the diagnostic counterpart of the Reconciler.
type Checker struct {
	db       *gorm.DB
	provider ProviderClient
}

// NewChecker creates a read-only consistency checker.
func NewChecker(db *gorm.DB, provider ProviderClient) *Checker {
	return &Checker{db: db, provider: provider}
}

// CheckAcademy audits every provider-managed subscription of one academy and
// reports all discrepancies found. It never mutates local state.
func (c *Checker) CheckAcademy(ctx context.Context, academyID uint) (*CheckResult, error) {
	repos := repository.NewRepositories(c.db)

	academy, err := repos.Academy.GetByID(academyID)
	if err != nil {
		return nil, fmt.Errorf("load academy %d: %w", academyID, err)
	}
	if !academy.IsBillingConfigured() {
		return nil, ErrAcademyNotConfigured
	}

	subs, err := repos.Subscription.ListProviderManagedByAcademy(academyID)
	if err != nil {
		return nil, fmt.Errorf("list local subscriptions: %w", err)
	}

	result := &CheckResult{Consistent: true}
	for _, local := range subs {
		issues, err := c.checkOne(ctx, &local)
		if err != nil {
			return nil, err
		}
		result.Issues = append(result.Issues, issues...)
	}
	result.Consistent = len(result.Issues) == 0
	return result, nil
}

func (c *Checker) checkOne(ctx context.Context, local *models.AcademySubscription) ([]string, error) {
	providerID := *local.ProviderSubscriptionID

	psub, err := c.provider.GetSubscription(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return []string{fmt.Sprintf("subscription %s: not found in provider", providerID)}, nil
		}
		return nil, fmt.Errorf("fetch provider subscription %s: %w", providerID, err)
	}

	var issues []string
	if !statusesEquivalent(local.Status, psub.Status) {
		issues = append(issues, fmt.Sprintf("subscription %s: status mismatch local=%s provider=%s",
			providerID, local.Status, psub.Status))
	}
	if !timesClose(local.CurrentPeriodStart, &psub.CurrentPeriodStart, driftTolerance) {
		issues = append(issues, fmt.Sprintf("subscription %s: current_period_start drift local=%s provider=%s",
			providerID, formatPeriod(local.CurrentPeriodStart), psub.CurrentPeriodStart.UTC().Format(time.RFC3339)))
	}
	if !timesClose(local.CurrentPeriodEnd, &psub.CurrentPeriodEnd, driftTolerance) {
		issues = append(issues, fmt.Sprintf("subscription %s: current_period_end drift local=%s provider=%s",
			providerID, formatPeriod(local.CurrentPeriodEnd), psub.CurrentPeriodEnd.UTC().Format(time.RFC3339)))
	}
	if local.AutoRenew == psub.CancelAtPeriodEnd {
		issues = append(issues, fmt.Sprintf("subscription %s: auto_renew mismatch local=%t provider cancel_at_period_end=%t",
			providerID, local.AutoRenew, psub.CancelAtPeriodEnd))
	}
	return issues, nil
}

func formatPeriod(t *time.Time) string {
	if t == nil {
		return "<nil>"
	}
	return t.UTC().Format(time.RFC3339)
}
