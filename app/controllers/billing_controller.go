package controllers

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/billing"
	"github.com/fieldpass/fieldpass/internal/pkg/cache"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/jobqueue"
	"github.com/fieldpass/fieldpass/internal/pkg/mail"
	"github.com/fieldpass/fieldpass/internal/pkg/usercontext"
)

const planCacheKey = "billing:plans:active"

// planQueryBudget bounds the catalog DB read; past it the hard-coded
// catalog is served so the pricing page never blocks on a slow database.
const planQueryBudget = 2 * time.Second

var (
	providerOnce   sync.Once
	providerClient billing.ProviderClient
)

// billingProvider returns the process-wide billing provider client.
func billingProvider() billing.ProviderClient {
	providerOnce.Do(func() {
		providerClient = billing.NewStripeClientFromEnv()
	})
	return providerClient
}

func billingManager() *billing.Manager {
	db := database.GetDB()
	provider := billingProvider()
	return billing.NewManager(db, provider, billing.NewReconciler(db, provider))
}

// HandleListPlans returns the active plan catalog. The catalog changes
// rarely and is read on every pricing page: Redis first, then the database
// under a 2s budget, then the hard-coded tier catalog as last resort. The
// pricing page must render something even with both stores down.
func HandleListPlans(c *fiber.Ctx) error {
	var plans []models.SubscriptionPlan
	if err := cache.GetJSON(planCacheKey, &plans); err == nil {
		return c.JSON(fiber.Map{"plans": plans, "cached": true})
	}

	ctx, cancel := context.WithTimeout(context.Background(), planQueryBudget)
	defer cancel()
	repos := repository.NewRepositories(database.GetDB().WithContext(ctx))
	plans, err := repos.Plan.ListActive()
	if err != nil {
		log.Warnf("[Billing] Plan catalog query failed, serving fallback: %v", err)
		return c.JSON(fiber.Map{"plans": fallbackPlans(), "cached": false, "fallback": true})
	}

	if err := cache.SetJSON(planCacheKey, plans, planCacheTTL); err != nil {
		log.Warnf("[Billing] Failed to cache plan catalog: %v", err)
	}
	return c.JSON(fiber.Map{"plans": plans, "cached": false})
}

// fallbackPlans is the static tier catalog served when cache and database
// are both unavailable. Prices mirror the seeded defaults.
func fallbackPlans() []models.SubscriptionPlan {
	return []models.SubscriptionPlan{
		{Name: "Starter", Tier: "starter", PriceCents: 0, Currency: "EUR", Interval: models.PlanIntervalMonthly, IsActive: true},
		{Name: "Club", Tier: "club", PriceCents: 4900, Currency: "EUR", Interval: models.PlanIntervalMonthly, IsActive: true},
		{Name: "Pro", Tier: "pro", PriceCents: 14900, Currency: "EUR", Interval: models.PlanIntervalMonthly, IsActive: true},
		{Name: "Elite", Tier: "elite", PriceCents: 39900, Currency: "EUR", Interval: models.PlanIntervalMonthly, IsActive: true},
	}
}

// HandleGetSubscription returns the academy's current active subscription.
func HandleGetSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		return unauthorized(c)
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	sub, err := repos.Subscription.GetActiveByAcademy(userCtx.AcademyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "No active subscription")
		}
		return internalError(c, "Failed to load subscription")
	}

	plan, err := repos.Plan.GetByID(sub.PlanID)
	if err != nil {
		return internalError(c, "Failed to load plan")
	}

	return c.JSON(fiber.Map{
		"subscription":     sub,
		"plan":             plan,
		"provider_managed": sub.IsProviderManaged(),
	})
}

// HandleListSubscriptionHistory returns the audit trail of one subscription.
func HandleListSubscriptionHistory(c *fiber.Ctx) error {
	sub, ok := loadOwnedSubscription(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	entries, err := repos.History.ListBySubscription(sub.ID)
	if err != nil {
		return internalError(c, "Failed to load history")
	}
	return c.JSON(fiber.Map{"history": entries, "count": len(entries)})
}

// HandleListSubscriptionPayments returns the payments of one subscription.
func HandleListSubscriptionPayments(c *fiber.Ctx) error {
	sub, ok := loadOwnedSubscription(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	payments, err := repos.Payment.ListBySubscription(sub.ID)
	if err != nil {
		return internalError(c, "Failed to load payments")
	}
	return c.JSON(fiber.Map{"payments": payments, "count": len(payments)})
}

type upgradeRequest struct {
	PlanID uint `json:"plan_id"`
}

// HandleUpgrade moves the academy to a different plan. Provider-managed
// subscriptions are upgraded at the provider; local ones are superseded by a
// new row.
func HandleUpgrade(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	var req upgradeRequest
	if err := c.BodyParser(&req); err != nil || req.PlanID == 0 {
		return badRequest(c, "plan_id is required")
	}

	ctx, cancel := providerContext()
	defer cancel()
	result, err := billingManager().Upgrade(ctx, userCtx.AcademyID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNoActiveSubscription):
			return conflict(c, "Academy has no active subscription to upgrade")
		case errors.Is(err, gorm.ErrRecordNotFound):
			return notFound(c, "Plan not found")
		default:
			log.Errorf("[Billing] Upgrade failed for academy %d: %v", userCtx.AcademyID, err)
			return badRequest(c, "Upgrade failed: "+err.Error())
		}
	}

	// The session-cached tier is stale after a plan change.
	invalidateTierCache(c)

	return c.JSON(result)
}

type cancelRequest struct {
	AtPeriodEnd bool   `json:"at_period_end"`
	Reason      string `json:"reason"`
}

// HandleCancelSubscription cancels a subscription, immediately or at the end
// of the current billing period.
func HandleCancelSubscription(c *fiber.Ctx) error {
	sub, ok := loadOwnedSubscription(c)
	if !ok {
		return nil
	}
	return cancelSubscription(c, sub)
}

func cancelSubscription(c *fiber.Ctx, sub *models.AcademySubscription) error {
	if !usercontext.IsAdmin(c) {
		return forbidden(c, "Admin access required")
	}

	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx, cancel := providerContext()
	defer cancel()
	if err := billingManager().Cancel(ctx, sub.ID, req.AtPeriodEnd, req.Reason); err != nil {
		if errors.Is(err, billing.ErrInvalidTransition) {
			return conflict(c, "Subscription cannot be cancelled from its current state")
		}
		log.Errorf("[Billing] Cancel failed for subscription %d: %v", sub.ID, err)
		return internalError(c, "Cancellation failed")
	}

	invalidateTierCache(c)
	return c.JSON(fiber.Map{"message": "Subscription cancelled"})
}

// HandleRenewSubscription reactivates an expired locally managed
// subscription for another billing period.
func HandleRenewSubscription(c *fiber.Ctx) error {
	sub, ok := loadOwnedSubscription(c)
	if !ok {
		return nil
	}
	return renewSubscription(c, sub)
}

func renewSubscription(c *fiber.Ctx, sub *models.AcademySubscription) error {
	if !usercontext.IsAdmin(c) {
		return forbidden(c, "Admin access required")
	}

	ctx, cancel := providerContext()
	defer cancel()
	if err := billingManager().Renew(ctx, sub.ID); err != nil {
		switch {
		case errors.Is(err, billing.ErrProviderManaged):
			return conflict(c, "Provider-managed subscriptions renew automatically")
		case errors.Is(err, billing.ErrInvalidTransition):
			return conflict(c, "Subscription cannot be renewed from its current state")
		default:
			return internalError(c, "Renewal failed")
		}
	}

	invalidateTierCache(c)
	return c.JSON(fiber.Map{"message": "Subscription renewed"})
}

type recordPaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
	Reference   string `json:"reference"`
	Notes       string `json:"notes"`
}

// HandleRecordCashPayment records a pending cash or bank-transfer payment
// against a locally managed subscription.
func HandleRecordCashPayment(c *fiber.Ctx) error {
	sub, ok := loadOwnedSubscription(c)
	if !ok {
		return nil
	}

	var req recordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Currency == "" {
		req.Currency = "EUR"
	}

	ctx, cancel := providerContext()
	defer cancel()
	payment, err := billingManager().RecordCashPayment(ctx, sub.ID, req.AmountCents, req.Currency, req.Method, req.Reference, req.Notes)
	if err != nil {
		if errors.Is(err, billing.ErrProviderManaged) {
			return conflict(c, "Provider-managed subscriptions are paid through the provider")
		}
		return badRequest(c, "Payment could not be recorded: "+err.Error())
	}

	log.Infof("[Billing] Cash payment %d recorded for subscription %d by user %d from %s",
		payment.ID, sub.ID, usercontext.GetUserID(c), GetClientIP(c))
	return c.Status(fiber.StatusCreated).JSON(payment)
}

type processPaymentRequest struct {
	Approve bool `json:"approve"`
}

// HandleProcessCashPayment approves or rejects a pending cash payment.
// Approval completes the payment, books the ledger credit and activates the
// subscription if it was waiting on the payment.
func HandleProcessCashPayment(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	paymentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return badRequest(c, "Invalid payment id")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	payment, err := repos.Payment.GetByID(uint(paymentID))
	if err != nil {
		return notFound(c, "Payment not found")
	}
	sub, err := repos.Subscription.GetByID(payment.SubscriptionID)
	if err != nil || sub.AcademyID != userCtx.AcademyID {
		return notFound(c, "Payment not found")
	}

	var req processPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ctx, cancel := providerContext()
	defer cancel()
	if err := billingManager().ProcessCashPayment(ctx, payment.ID, req.Approve, userCtx.UserID); err != nil {
		return conflict(c, "Payment could not be processed: "+err.Error())
	}

	invalidateTierCache(c)
	status := models.PaymentStatusCompleted
	if !req.Approve {
		status = models.PaymentStatusFailed
	}

	if req.Approve {
		if academy, err := repos.Academy.GetByID(sub.AcademyID); err == nil {
			if err := mail.SendPaymentReceipt(academy.ContactEmail, academy.Name, payment.AmountCents, payment.Currency); err != nil {
				log.Warnf("[Billing] Failed to send payment receipt for payment %d: %v", payment.ID, err)
			}
		}
	}
	return c.JSON(fiber.Map{"payment_id": payment.ID, "status": status})
}

// HandleTriggerSync queues a reconciliation run for the caller's academy.
// The sync runs on the job queue; the response only acknowledges the request.
func HandleTriggerSync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	job, err := jobqueue.GetManager().EnqueueAcademySync(userCtx.AcademyID)
	if err != nil {
		return internalError(c, "Failed to queue sync")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID, "status": string(job.Status)})
}

// HandleGetSyncJob reports the state of a previously queued sync job.
func HandleGetSyncJob(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	job, err := jobqueue.GetManager().GetQueue().GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return notFound(c, "Job not found")
	}
	return c.JSON(fiber.Map{
		"job_id":       job.ID,
		"type":         string(job.Type),
		"status":       string(job.Status),
		"retry_count":  job.RetryCount,
		"error":        job.ErrorMsg,
		"created_at":   job.CreatedAt.UTC().Format(time.RFC3339),
		"processed_at": formatTimePtr(job.ProcessedAt),
		"completed_at": formatTimePtr(job.CompletedAt),
	})
}

// HandleQueueStats exposes job queue counters for operators.
func HandleQueueStats(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin {
		return forbidden(c, "Admin access required")
	}

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	ctx := c.Context()

	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		return internalError(c, "Failed to load job stats")
	}
	queued, _ := queue.GetQueueSize(ctx)
	processing, _ := queue.GetProcessingSize(ctx)

	return c.JSON(fiber.Map{
		"running":         manager.IsRunning(),
		"queue_size":      queued,
		"processing_size": processing,
		"stats":           stats,
	})
}

// HandleConsistencyCheck compares local subscription state against the
// provider without writing anything.
func HandleConsistencyCheck(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsAdmin || userCtx.AcademyID == 0 {
		return forbidden(c, "Admin access required")
	}

	ctx, cancel := providerContext()
	defer cancel()
	checker := billing.NewChecker(database.GetDB(), billingProvider())
	result, err := checker.CheckAcademy(ctx, userCtx.AcademyID)
	if err != nil {
		if errors.Is(err, billing.ErrAcademyNotConfigured) {
			return badRequest(c, "Academy has no billing customer")
		}
		return internalError(c, "Consistency check failed")
	}
	return c.JSON(result)
}

// HandleCurrentSubscriptionHistory returns the audit trail of the academy's
// newest subscription.
func HandleCurrentSubscriptionHistory(c *fiber.Ctx) error {
	sub, ok := currentSubscription(c)
	if !ok {
		return nil
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	entries, err := repos.History.ListBySubscription(sub.ID)
	if err != nil {
		return internalError(c, "Failed to load history")
	}
	return c.JSON(fiber.Map{"subscription_id": sub.ID, "history": entries, "count": len(entries)})
}

// HandleCancelCurrentSubscription cancels the academy's newest subscription.
func HandleCancelCurrentSubscription(c *fiber.Ctx) error {
	sub, ok := currentSubscription(c)
	if !ok {
		return nil
	}
	return cancelSubscription(c, sub)
}

// HandleRenewCurrentSubscription renews the academy's newest subscription.
func HandleRenewCurrentSubscription(c *fiber.Ctx) error {
	sub, ok := currentSubscription(c)
	if !ok {
		return nil
	}
	return renewSubscription(c, sub)
}

// currentSubscription resolves the academy's newest subscription row.
func currentSubscription(c *fiber.Ctx) (*models.AcademySubscription, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		_ = unauthorized(c)
		return nil, false
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	subs, err := repos.Subscription.ListByAcademy(userCtx.AcademyID)
	if err != nil {
		_ = internalError(c, "Failed to load subscription")
		return nil, false
	}
	if len(subs) == 0 {
		_ = notFound(c, "Academy has no subscription")
		return nil, false
	}
	return &subs[0], true
}

// loadOwnedSubscription resolves the :id route param and enforces that the
// subscription belongs to the caller's academy. On failure the error
// response has already been written and ok is false.
func loadOwnedSubscription(c *fiber.Ctx) (*models.AcademySubscription, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AcademyID == 0 {
		_ = unauthorized(c)
		return nil, false
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		_ = badRequest(c, "Invalid subscription id")
		return nil, false
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	sub, err := repos.Subscription.GetByID(uint(id))
	if err != nil || sub.AcademyID != userCtx.AcademyID {
		// Same response for missing and foreign rows
		_ = notFound(c, "Subscription not found")
		return nil, false
	}
	return sub, true
}

// invalidateTierCache drops the session-cached tier so the next request
// resolves entitlements from the new subscription state.
func invalidateTierCache(c *fiber.Ctx) {
	if err := sessionDeleteTier(c); err != nil {
		log.Debugf("[Billing] Failed to drop cached tier: %v", err)
	}
}
