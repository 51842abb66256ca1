package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/fieldpass/fieldpass/app/models"
	"github.com/fieldpass/fieldpass/app/repository"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/mail"
)

// processSubscriptionExpiryScanJob expires locally managed subscriptions whose
// billing period ended without auto-renewal. Provider-managed rows are left
// alone: the provider decides their fate and reconciliation mirrors it.
func (q *Queue) processSubscriptionExpiryScanJob(ctx context.Context, job *Job) error {
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database unavailable")
	}

	now := time.Now().UTC()
	var candidates []models.AcademySubscription
	err := db.
		Where("provider_subscription_id IS NULL").
		Where("status IN ?", []string{models.SubscriptionStatusActive, models.SubscriptionStatusPastDue}).
		Where("current_period_end IS NOT NULL AND current_period_end < ?", now).
		Find(&candidates).Error
	if err != nil {
		return fmt.Errorf("list expiry candidates: %w", err)
	}

	expired := 0
	for _, sub := range candidates {
		if sub.AutoRenew {
			// Auto-renewing local subscriptions roll over instead of expiring.
			continue
		}
		if !models.CanTransition(sub.Status, models.SubscriptionStatusExpired) {
			continue
		}

		txErr := db.Transaction(func(tx *gorm.DB) error {
			repos := repository.NewRepositories(tx)
			oldStatus := sub.Status
			sub.Status = models.SubscriptionStatusExpired
			if err := repos.Subscription.Update(&sub); err != nil {
				return err
			}
			return repos.History.Append(sub.ID, models.HistoryActionSyncedUpdate, map[string]any{
				"old_status": oldStatus,
				"new_status": models.SubscriptionStatusExpired,
				"reason":     "billing period ended without renewal",
			})
		})
		if txErr != nil {
			log.Errorf("[JobQueue] Failed to expire subscription %d: %v", sub.ID, txErr)
			continue
		}
		expired++
	}

	log.Infof("[JobQueue] Subscription expiry scan: %d of %d candidates expired", expired, len(candidates))
	return nil
}

// processDocumentExpiryScanJob flags compliance documents nearing or past
// their expiry date and notifies the owning academies.
func (q *Queue) processDocumentExpiryScanJob(ctx context.Context, job *Job) error {
	payload, err := DocumentExpiryScanJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid document expiry payload: %w", err)
	}
	warnDays := payload.WarnBeforeDays
	if warnDays <= 0 {
		warnDays = 30
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database unavailable")
	}
	repos := repository.NewRepositories(db)

	now := time.Now().UTC()
	horizon := now.AddDate(0, 0, warnDays)
	docs, err := repos.Document.ListExpiringBefore(horizon)
	if err != nil {
		return fmt.Errorf("list expiring documents: %w", err)
	}

	for _, doc := range docs {
		if doc.ExpiresAt == nil {
			continue
		}

		newStatus := models.DocStatusExpiring
		if !doc.ExpiresAt.After(now) {
			newStatus = models.DocStatusExpired
		}
		if doc.Status == newStatus {
			continue
		}
		if err := repos.Document.UpdateStatus(doc.ID, newStatus); err != nil {
			log.Errorf("[JobQueue] Failed to update document %s status: %v", doc.UUID, err)
			continue
		}

		if newStatus == models.DocStatusExpiring {
			academy, err := repos.Academy.GetByID(doc.AcademyID)
			if err != nil {
				log.Errorf("[JobQueue] Failed to load academy %d for expiry notice: %v", doc.AcademyID, err)
				continue
			}
			daysLeft := int(doc.ExpiresAt.Sub(now).Hours() / 24)
			if err := mail.SendDocumentExpiryNotice(academy.ContactEmail, academy.Name, doc.DocType, doc.FileName, daysLeft); err != nil {
				log.Errorf("[JobQueue] Failed to send expiry notice for document %s: %v", doc.UUID, err)
			}
		}
	}

	log.Infof("[JobQueue] Document expiry scan processed %d documents", len(docs))
	return nil
}
