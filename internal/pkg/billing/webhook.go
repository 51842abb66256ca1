package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
)

// ProviderStripe is the provider tag stored on webhook events and used for
// dedup scoping.
const ProviderStripe = "stripe"

// WebhookProcessor ingests provider webhook events. Events are stored with a
// unique (provider, event id) constraint so at-least-once delivery collapses
// into exactly-once processing, and each relevant event triggers a targeted
// re-sync instead of trusting the event payload.
type WebhookProcessor struct {
	db         *gorm.DB
	reconciler *Reconciler
}

// NewWebhookProcessor creates a webhook processor.
func NewWebhookProcessor(db *gorm.DB, reconciler *Reconciler) *WebhookProcessor {
	return &WebhookProcessor{db: db, reconciler: reconciler}
}

type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID           string `json:"id"`
			Object       string `json:"object"`
			Subscription string `json:"subscription"`
		} `json:"object"`
	} `json:"data"`
}

// subscriptionID extracts the provider subscription the event refers to, if
// any. Subscription events carry it as the object id, invoice events as a
// reference field.
func (e *webhookEnvelope) subscriptionID() string {
	if e.Data.Object.Object == "subscription" {
		return e.Data.Object.ID
	}
	return e.Data.Object.Subscription
}

// relevantEvent reports whether the event type affects the local mirror.
// Everything else is stored for audit and acknowledged without processing.
func relevantEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "customer.subscription.") ||
		strings.HasPrefix(eventType, "invoice.")
}

// HandleEvent stores and processes one webhook delivery. A redelivered event
// id is acknowledged without reprocessing. Processing failures are recorded
// on the stored event and returned so the provider retries the delivery.
func (p *WebhookProcessor) HandleEvent(ctx context.Context, payload []byte, signatureValid bool) error {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}
	if envelope.ID == "" {
		return fmt.Errorf("webhook payload has no event id")
	}

	event := &models.BillingWebhookEvent{
		Provider:        ProviderStripe,
		ProviderEventID: envelope.ID,
		EventType:       envelope.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  signatureValid,
	}
	if err := p.db.Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
			log.Debugf("[Billing] Webhook event %s already seen, skipping", envelope.ID)
			return nil
		}
		return fmt.Errorf("store webhook event: %w", err)
	}

	if !signatureValid || !relevantEvent(envelope.Type) {
		return p.markProcessed(event, "")
	}

	subscriptionID := envelope.subscriptionID()
	if subscriptionID == "" {
		return p.markProcessed(event, "")
	}

	if err := p.reconciler.SyncProviderSubscription(ctx, subscriptionID); err != nil {
		if markErr := p.markProcessed(event, err.Error()); markErr != nil {
			log.Errorf("[Billing] Failed to record webhook processing error: %v", markErr)
		}
		return fmt.Errorf("process webhook event %s: %w", envelope.ID, err)
	}
	return p.markProcessed(event, "")
}

func (p *WebhookProcessor) markProcessed(event *models.BillingWebhookEvent, processingError string) error {
	now := time.Now().UTC()
	event.ProcessedAt = &now
	event.ProcessingError = processingError
	return p.db.Save(event).Error
}

// isDuplicateKeyError matches driver-specific unique violation messages that
// gorm does not always translate.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
