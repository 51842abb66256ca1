package jobqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/fieldpass/fieldpass/internal/pkg/billing"
	"github.com/fieldpass/fieldpass/internal/pkg/database"
	"github.com/fieldpass/fieldpass/internal/pkg/mail"
)

// processBillingSyncJob reconciles one academy against the billing provider,
// or all configured academies when the payload names none.
func (q *Queue) processBillingSyncJob(ctx context.Context, job *Job) error {
	payload, err := BillingSyncJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid billing sync payload: %w", err)
	}

	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database unavailable")
	}
	reconciler := billing.NewReconciler(db, q.provider)

	var result billing.SyncResult
	if payload.AcademyID == 0 {
		result = reconciler.SyncAll(ctx)
	} else {
		result = reconciler.SyncAcademy(ctx, payload.AcademyID)
	}

	if len(result.Errors) > 0 {
		log.Warnf("[JobQueue] Billing sync finished with %d errors (synced=%d)", len(result.Errors), result.Synced)
		if payload.AcademyID == 0 {
			// Only the nightly full run alerts the operators.
			if mailErr := mail.SendSyncFailureAlert(result.Errors); mailErr != nil {
				log.Errorf("[JobQueue] Failed to send sync failure alert: %v", mailErr)
			}
		}
		return fmt.Errorf("billing sync errors: %s", strings.Join(result.Errors, "; "))
	}

	log.Infof("[JobQueue] Billing sync completed: %d subscriptions synced", result.Synced)
	return nil
}
