package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
)

const (
	// First page only; academies with more historical subscriptions than
	// this are truncated.
	maxSubscriptionsPerSync = 100
	maxInvoicesPerSync      = 10
)

// Reconciler pulls provider-side subscription and invoice truth into the
// local mirror. It is the only component that writes SYNCED_* history
// entries, and since orchestration routes its own mutations through a
// targeted re-sync, it is the single writer for provider-managed rows.
type Reconciler struct {
	db       *gorm.DB
	provider ProviderClient
}

// NewReconciler creates a reconciler over the given DB handle and provider.
func NewReconciler(db *gorm.DB, provider ProviderClient) *Reconciler {
	return &Reconciler{db: db, provider: provider}
}

// SyncAcademy mirrors all provider subscriptions of one academy. Per-item
// failures are recorded in the result and never abort the remaining items.
func (r *Reconciler) SyncAcademy(ctx context.Context, academyID uint) SyncResult {
	result := SyncResult{Success: true}
	repos := repository.NewRepositories(r.db)

	academy, err := repos.Academy.GetByID(academyID)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("academy %d: %v", academyID, err))
		return result
	}
	if !academy.IsBillingConfigured() {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("academy %s: %v", academy.UUID, ErrAcademyNotConfigured))
		return result
	}

	providerSubs, err := r.provider.ListSubscriptions(ctx, *academy.ProviderCustomerID, maxSubscriptionsPerSync)
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("academy %s: list provider subscriptions: %v", academy.UUID, err))
		return result
	}

	for _, psub := range providerSubs {
		if err := r.syncOne(ctx, academy, psub); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("subscription %s: %v", psub.ID, err))
			continue
		}
		result.Synced++
	}

	result.Success = len(result.Errors) == 0
	return result
}

// SyncAll reconciles every billing-configured academy. One academy's failure
// never stops the loop.
func (r *Reconciler) SyncAll(ctx context.Context) SyncResult {
	result := SyncResult{Success: true}
	repos := repository.NewRepositories(r.db)

	academies, err := repos.Academy.ListBillingConfigured()
	if err != nil {
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("list academies: %v", err))
		return result
	}

	for _, academy := range academies {
		result.Merge(r.SyncAcademy(ctx, academy.ID))
	}

	log.Infof("[Billing] Full sync finished: %d subscriptions synced, %d errors", result.Synced, len(result.Errors))
	return result
}

// SyncProviderSubscription re-fetches a single provider subscription and
// mirrors it locally. Orchestration endpoints and webhook handlers use this
// as the authoritative write path after issuing provider-side commands.
func (r *Reconciler) SyncProviderSubscription(ctx context.Context, providerSubscriptionID string) error {
	psub, err := r.provider.GetSubscription(ctx, providerSubscriptionID)
	if err != nil {
		return fmt.Errorf("fetch provider subscription %s: %w", providerSubscriptionID, err)
	}

	repos := repository.NewRepositories(r.db)
	academy, err := repos.Academy.GetByProviderCustomerID(psub.CustomerID)
	if err != nil {
		return fmt.Errorf("resolve academy for provider customer %s: %w", psub.CustomerID, err)
	}

	return r.syncOne(ctx, academy, *psub)
}

// syncOne mirrors one provider subscription into the local store. Row upsert,
// history append and invoice sync run in one all-or-nothing transaction so a
// crash mid-update cannot leave a subscription without its audit entry.
func (r *Reconciler) syncOne(ctx context.Context, academy *models.Academy, psub ProviderSubscription) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		plan, err := repos.Plan.GetByProviderPriceID(psub.PriceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no local plan for provider price %s", psub.PriceID)
			}
			return fmt.Errorf("resolve plan for provider price %s: %w", psub.PriceID, err)
		}

		local, err := repos.Subscription.GetByProviderSubscriptionID(psub.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			local, err = r.createLocal(repos, academy, plan, psub)
			if err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("load local subscription: %w", err)
		default:
			if err := r.updateLocal(repos, local, plan, psub); err != nil {
				return err
			}
		}

		// Invoice sync failures never fail the parent subscription sync.
		if err := r.syncInvoices(ctx, repos, local.ID, psub.ID); err != nil {
			log.Warnf("[Billing] Invoice sync for subscription %s failed: %v", psub.ID, err)
		}
		return nil
	})
}

func (r *Reconciler) createLocal(repos *repository.Repositories, academy *models.Academy, plan *models.SubscriptionPlan, psub ProviderSubscription) (*models.AcademySubscription, error) {
	start := psub.CurrentPeriodStart
	end := psub.CurrentPeriodEnd
	providerID := psub.ID

	sub := &models.AcademySubscription{
		AcademyID:              academy.ID,
		PlanID:                 plan.ID,
		Status:                 StatusFromProvider(psub.Status),
		CurrentPeriodStart:     &start,
		CurrentPeriodEnd:       &end,
		AutoRenew:              !psub.CancelAtPeriodEnd,
		ProviderSubscriptionID: &providerID,
	}
	if err := repos.Subscription.Create(sub); err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}

	err := repos.History.Append(sub.ID, models.HistoryActionSyncedCreate, map[string]any{
		"provider_subscription_id": psub.ID,
		"status":                   sub.Status,
		"plan_id":                  plan.ID,
		"current_period_start":     psub.CurrentPeriodStart,
		"current_period_end":       psub.CurrentPeriodEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return sub, nil
}

// updateLocal writes only when the provider state actually differs, so a
// no-change sync produces no history noise.
func (r *Reconciler) updateLocal(repos *repository.Repositories, local *models.AcademySubscription, plan *models.SubscriptionPlan, psub ProviderSubscription) error {
	newStatus := StatusFromProvider(psub.Status)
	autoRenew := !psub.CancelAtPeriodEnd

	changed := local.Status != newStatus ||
		local.PlanID != plan.ID ||
		local.AutoRenew != autoRenew ||
		!timesClose(local.CurrentPeriodStart, &psub.CurrentPeriodStart, 0) ||
		!timesClose(local.CurrentPeriodEnd, &psub.CurrentPeriodEnd, 0)
	if !changed {
		return nil
	}

	oldStatus := local.Status
	start := psub.CurrentPeriodStart
	end := psub.CurrentPeriodEnd

	local.Status = newStatus
	local.PlanID = plan.ID
	local.AutoRenew = autoRenew
	local.CurrentPeriodStart = &start
	local.CurrentPeriodEnd = &end
	if err := repos.Subscription.Update(local); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	err := repos.History.Append(local.ID, models.HistoryActionSyncedUpdate, map[string]any{
		"provider_subscription_id": psub.ID,
		"old_status":               oldStatus,
		"new_status":               newStatus,
		"current_period_start":     psub.CurrentPeriodStart,
		"current_period_end":       psub.CurrentPeriodEnd,
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// syncInvoices inserts a COMPLETED payment for every paid provider invoice
// that has no local payment row yet, deduplicated on the invoice id.
func (r *Reconciler) syncInvoices(ctx context.Context, repos *repository.Repositories, localSubID uint, providerSubID string) error {
	invoices, err := r.provider.ListInvoices(ctx, providerSubID, maxInvoicesPerSync)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}

	for _, invoice := range invoices {
		if invoice.Status != "paid" {
			continue
		}
		exists, err := repos.Payment.ExistsByProviderInvoiceID(invoice.ID)
		if err != nil {
			return fmt.Errorf("check payment for invoice %s: %w", invoice.ID, err)
		}
		if exists {
			continue
		}

		invoiceID := invoice.ID
		payment := &models.SubscriptionPayment{
			SubscriptionID:    localSubID,
			AmountCents:       invoice.AmountCents,
			Currency:          invoice.Currency,
			Method:            models.PaymentMethodProvider,
			Status:            models.PaymentStatusCompleted,
			ProviderInvoiceID: &invoiceID,
			PaidAt:            invoice.PaidAt,
		}
		if err := repos.Payment.Create(payment); err != nil {
			return fmt.Errorf("insert payment for invoice %s: %w", invoice.ID, err)
		}
	}
	return nil
}
