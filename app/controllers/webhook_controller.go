package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/fieldpass/fieldpass/internal/pkg/billing"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

// webhookSignatureTolerance bounds how old a signed webhook timestamp may be.
const webhookSignatureTolerance = 5 * time.Minute

// HandleBillingWebhook receives billing provider events. Every event is
// persisted before processing so redeliveries are deduplicated and invalid
// signatures stay auditable. A non-2xx response makes the provider retry, so
// only processing failures return 400.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	if len(payload) == 0 {
		return badRequest(c, "Empty payload")
	}

	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	signatureValid := billing.VerifyWebhookSignature(
		payload, c.Get("Stripe-Signature"), secret, time.Now(), webhookSignatureTolerance,
	)
	if !signatureValid {
		log.Warnf("[Webhook] Invalid signature from %s", GetClientIP(c))
	}

	db := database.GetDB()
	if db == nil {
		return internalError(c, "Database unavailable")
	}
	processor := billing.NewWebhookProcessor(db, billing.NewReconciler(db, billingProvider()))

	ctx, cancel := providerContext()
	defer cancel()
	if err := processor.HandleEvent(ctx, payload, signatureValid); err != nil {
		log.Errorf("[Webhook] Event processing failed: %v", err)
		return badRequest(c, "Event processing failed")
	}

	return c.JSON(fiber.Map{"received": true})
}
