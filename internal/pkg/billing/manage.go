package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
)

var (
	// ErrNoActiveSubscription is returned when an academy has nothing to
	// upgrade or cancel.
	ErrNoActiveSubscription = errors.New("academy has no active subscription")

	// ErrInvalidTransition marks a lifecycle change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid subscription state transition")

	// ErrProviderManaged is returned for operations that only apply to
	// locally managed subscriptions. Provider-managed rows change through the
	// provider followed by a re-sync, never by direct local mutation.
	ErrProviderManaged = errors.New("subscription is managed by the billing provider")
)

// UpgradeResult describes what an upgrade actually did.
type UpgradeResult struct {
	// SubscriptionID is the row that carries the new plan after the upgrade.
	SubscriptionID uint `json:"subscription_id"`
	// CheckoutRequired is set when the new plan is provider-billed but no
	// provider subscription exists yet, so the academy must complete a
	// checkout before the plan becomes ACTIVE.
	CheckoutRequired bool `json:"checkout_required"`
}

// Manager orchestrates subscription lifecycle commands. For provider-managed
// subscriptions it never writes plan or period fields itself: it issues the
// provider command and then runs a targeted re-sync, keeping the Reconciler
// the single writer for provider-mirrored state.
type Manager struct {
	db         *gorm.DB
	provider   ProviderClient
	reconciler *Reconciler
}

// NewManager creates a subscription lifecycle manager.
func NewManager(db *gorm.DB, provider ProviderClient, reconciler *Reconciler) *Manager {
	return &Manager{db: db, provider: provider, reconciler: reconciler}
}

// Upgrade moves an academy's current subscription onto a new plan.
//
// When both the current subscription and the new plan are provider-billed the
// price swap happens at the provider with prorations, followed by a targeted
// re-sync. Otherwise the current row is superseded: it goes to CANCELLED with
// SupersededByID pointing at a fresh PENDING row on the new plan.
func (m *Manager) Upgrade(ctx context.Context, academyID, newPlanID uint) (*UpgradeResult, error) {
	repos := repository.NewRepositories(m.db)

	newPlan, err := repos.Plan.GetByID(newPlanID)
	if err != nil {
		return nil, fmt.Errorf("load plan %d: %w", newPlanID, err)
	}
	if !newPlan.IsActive {
		return nil, fmt.Errorf("plan %d is not active", newPlanID)
	}

	current, err := repos.Subscription.GetActiveByAcademy(academyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSubscription
		}
		return nil, fmt.Errorf("load active subscription: %w", err)
	}
	if current.PlanID == newPlanID {
		return nil, fmt.Errorf("subscription already on plan %d", newPlanID)
	}

	if current.IsProviderManaged() && newPlan.IsProviderManaged() {
		return m.upgradeAtProvider(ctx, current, newPlan)
	}
	return m.upgradeBySupersede(current, newPlan)
}

func (m *Manager) upgradeAtProvider(ctx context.Context, current *models.AcademySubscription, newPlan *models.SubscriptionPlan) (*UpgradeResult, error) {
	oldPlanID := current.PlanID
	providerSubID := *current.ProviderSubscriptionID

	if _, err := m.provider.UpdateSubscriptionPrice(ctx, providerSubID, newPlan.ProviderPriceID, ProrationCreateProrations); err != nil {
		return nil, fmt.Errorf("provider price update: %w", err)
	}

	// Local mirror and SYNCED_UPDATE entry come from the re-sync; the
	// UPGRADED entry records intent on top of it.
	if err := m.reconciler.SyncProviderSubscription(ctx, providerSubID); err != nil {
		// The provider already applied the change. The mirror catches up on
		// the next scheduled sync or webhook.
		log.Errorf("[Billing] Re-sync after upgrade of %s failed: %v", providerSubID, err)
	}

	repos := repository.NewRepositories(m.db)
	err := repos.History.Append(current.ID, models.HistoryActionUpgraded, map[string]any{
		"old_plan_id": oldPlanID,
		"new_plan_id": newPlan.ID,
		"via":         "provider_price_swap",
	})
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return &UpgradeResult{SubscriptionID: current.ID}, nil
}

func (m *Manager) upgradeBySupersede(current *models.AcademySubscription, newPlan *models.SubscriptionPlan) (*UpgradeResult, error) {
	if !models.CanTransition(current.Status, models.SubscriptionStatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, models.SubscriptionStatusCancelled)
	}

	var result UpgradeResult
	err := m.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		replacement := &models.AcademySubscription{
			AcademyID: current.AcademyID,
			PlanID:    newPlan.ID,
			Status:    models.SubscriptionStatusPending,
			AutoRenew: true,
		}
		if !newPlan.IsProviderManaged() {
			// Local plans need no checkout, the new row activates now.
			now := time.Now().UTC()
			end := NextPeriodEnd(newPlan.Interval, now)
			replacement.Status = models.SubscriptionStatusActive
			replacement.CurrentPeriodStart = &now
			replacement.CurrentPeriodEnd = &end
		}
		if err := repos.Subscription.Create(replacement); err != nil {
			return fmt.Errorf("insert replacement subscription: %w", err)
		}

		current.Status = models.SubscriptionStatusCancelled
		current.AutoRenew = false
		current.SupersededByID = &replacement.ID
		current.CancelReason = "superseded by upgrade"
		if err := repos.Subscription.Update(current); err != nil {
			return fmt.Errorf("supersede old subscription: %w", err)
		}

		err := repos.History.Append(replacement.ID, models.HistoryActionUpgraded, map[string]any{
			"old_subscription_id": current.ID,
			"old_plan_id":         current.PlanID,
			"new_plan_id":         newPlan.ID,
			"via":                 "supersede",
		})
		if err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		result = UpgradeResult{
			SubscriptionID:   replacement.ID,
			CheckoutRequired: newPlan.IsProviderManaged(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Cancel ends a subscription. Provider-managed rows are cancelled at the
// provider (immediately or at period end) and then re-synced; local rows go
// through the state machine directly.
func (m *Manager) Cancel(ctx context.Context, subscriptionID uint, atPeriodEnd bool, reason string) error {
	repos := repository.NewRepositories(m.db)

	sub, err := repos.Subscription.GetByID(subscriptionID)
	if err != nil {
		return fmt.Errorf("load subscription %d: %w", subscriptionID, err)
	}

	if sub.IsProviderManaged() {
		providerSubID := *sub.ProviderSubscriptionID
		if _, err := m.provider.CancelSubscription(ctx, providerSubID, atPeriodEnd); err != nil {
			return fmt.Errorf("provider cancel: %w", err)
		}
		if err := m.reconciler.SyncProviderSubscription(ctx, providerSubID); err != nil {
			log.Errorf("[Billing] Re-sync after cancel of %s failed: %v", providerSubID, err)
		}
		if reason != "" {
			sub.CancelReason = reason
			if err := repos.Subscription.Update(sub); err != nil {
				return fmt.Errorf("store cancel reason: %w", err)
			}
		}
	} else {
		if !models.CanTransition(sub.Status, models.SubscriptionStatusCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, models.SubscriptionStatusCancelled)
		}
		sub.Status = models.SubscriptionStatusCancelled
		sub.AutoRenew = false
		sub.CancelReason = reason
		if err := repos.Subscription.Update(sub); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}
	}

	return repos.History.Append(sub.ID, models.HistoryActionCancelled, map[string]any{
		"at_period_end": atPeriodEnd,
		"reason":        reason,
	})
}

// Renew reactivates an EXPIRED locally managed subscription for one more
// billing period. Provider-managed subscriptions renew at the provider, so
// they are rejected here.
func (m *Manager) Renew(ctx context.Context, subscriptionID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		sub, err := repos.Subscription.GetByID(subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %d: %w", subscriptionID, err)
		}
		if sub.IsProviderManaged() {
			return ErrProviderManaged
		}
		if !models.CanTransition(sub.Status, models.SubscriptionStatusActive) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sub.Status, models.SubscriptionStatusActive)
		}

		plan, err := repos.Plan.GetByID(sub.PlanID)
		if err != nil {
			return fmt.Errorf("load plan %d: %w", sub.PlanID, err)
		}

		// Renewing before the old period ended extends from the old boundary,
		// renewing late starts a fresh period now.
		now := time.Now().UTC()
		start := now
		if sub.CurrentPeriodEnd != nil && sub.CurrentPeriodEnd.After(now) {
			start = *sub.CurrentPeriodEnd
		}
		end := NextPeriodEnd(plan.Interval, start)

		oldStatus := sub.Status
		sub.Status = models.SubscriptionStatusActive
		sub.CurrentPeriodStart = &start
		sub.CurrentPeriodEnd = &end
		if err := repos.Subscription.Update(sub); err != nil {
			return fmt.Errorf("update subscription: %w", err)
		}

		return repos.History.Append(sub.ID, models.HistoryActionRenewed, map[string]any{
			"old_status":           oldStatus,
			"current_period_start": start,
			"current_period_end":   end,
		})
	})
}

// RecordCashPayment registers an offline payment (cash or bank transfer)
// against a subscription. The payment stays PENDING until an admin processes
// it.
func (m *Manager) RecordCashPayment(ctx context.Context, subscriptionID uint, amountCents int64, currency, method, reference, notes string) (*models.SubscriptionPayment, error) {
	if method != models.PaymentMethodCash && method != models.PaymentMethodBankTransfer {
		return nil, fmt.Errorf("unsupported offline payment method %q", method)
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	var payment *models.SubscriptionPayment
	err := m.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		sub, err := repos.Subscription.GetByID(subscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %d: %w", subscriptionID, err)
		}
		if sub.IsProviderManaged() {
			return ErrProviderManaged
		}

		payment = &models.SubscriptionPayment{
			SubscriptionID: sub.ID,
			AmountCents:    amountCents,
			Currency:       currency,
			Method:         method,
			Status:         models.PaymentStatusPending,
			Reference:      reference,
			Notes:          notes,
		}
		if err := repos.Payment.Create(payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		return repos.History.Append(sub.ID, models.HistoryActionPaymentRecorded, map[string]any{
			"payment_id":   payment.ID,
			"amount_cents": amountCents,
			"currency":     currency,
			"method":       method,
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ProcessCashPayment confirms or rejects a pending offline payment. On
// confirmation the payment completes, a credit ledger entry is written, and a
// PENDING or EXPIRED local subscription is activated for one billing period.
func (m *Manager) ProcessCashPayment(ctx context.Context, paymentID uint, approve bool, processorID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)

		payment, err := repos.Payment.GetByID(paymentID)
		if err != nil {
			return fmt.Errorf("load payment %d: %w", paymentID, err)
		}
		if payment.Status != models.PaymentStatusPending {
			return fmt.Errorf("payment %d already processed (status %s)", paymentID, payment.Status)
		}

		now := time.Now().UTC()
		payment.ProcessedByID = &processorID
		if !approve {
			payment.Status = models.PaymentStatusFailed
			return repos.Payment.Update(payment)
		}

		payment.Status = models.PaymentStatusCompleted
		payment.PaidAt = &now
		if err := repos.Payment.Update(payment); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		sub, err := repos.Subscription.GetByID(payment.SubscriptionID)
		if err != nil {
			return fmt.Errorf("load subscription %d: %w", payment.SubscriptionID, err)
		}

		entry := &models.LedgerEntry{
			AcademyID:   sub.AcademyID,
			EntryDate:   now,
			Direction:   models.LedgerDirectionCredit,
			Category:    models.LedgerCategorySubscription,
			AmountCents: payment.AmountCents,
			Currency:    payment.Currency,
			Memo:        fmt.Sprintf("subscription payment #%d (%s)", payment.ID, payment.Method),
			PaymentID:   &payment.ID,
			RecordedBy:  processorID,
		}
		if err := repos.Ledger.Append(entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		if !sub.IsProviderManaged() && models.CanTransition(sub.Status, models.SubscriptionStatusActive) {
			plan, err := repos.Plan.GetByID(sub.PlanID)
			if err != nil {
				return fmt.Errorf("load plan %d: %w", sub.PlanID, err)
			}
			end := NextPeriodEnd(plan.Interval, now)
			sub.Status = models.SubscriptionStatusActive
			sub.CurrentPeriodStart = &now
			sub.CurrentPeriodEnd = &end
			if err := repos.Subscription.Update(sub); err != nil {
				return fmt.Errorf("activate subscription: %w", err)
			}
		}
		return nil
	})
}
