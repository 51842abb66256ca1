package jobqueue

import (
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/fieldpass/fieldpass/internal/pkg/billing"
	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

// Manager manages the global job queue and scheduled background jobs
type Manager struct {
	queue   *Queue
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v, err := strconv.Atoi(env.GetEnv("JOB_WORKERS", "3")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue: NewQueue(workerCount, billing.NewStripeClientFromEnv()),
			cron:  cron.New(),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue workers and the cron schedule
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and schedules")

	m.queue.Start()

	// Nightly full reconciliation against the billing provider.
	syncSpec := env.GetEnv("BILLING_SYNC_SCHEDULE", "0 3 * * *")
	if _, err := m.cron.AddFunc(syncSpec, func() {
		if _, err := m.queue.EnqueueJob(JobTypeBillingSync, BillingSyncJobPayload{}.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue nightly billing sync: %v", err)
		}
	}); err != nil {
		log.Errorf("[JobQueue Manager] Invalid billing sync schedule %q: %v", syncSpec, err)
	}

	// Daily lifecycle scans.
	if _, err := m.cron.AddFunc("30 4 * * *", func() {
		if _, err := m.queue.EnqueueJob(JobTypeSubscriptionExpiryScan, map[string]interface{}{}); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue subscription expiry scan: %v", err)
		}
		if _, err := m.queue.EnqueueJob(JobTypeDocumentExpiryScan, DocumentExpiryScanJobPayload{WarnBeforeDays: 30}.ToMap()); err != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue document expiry scan: %v", err)
		}
	}); err != nil {
		log.Errorf("[JobQueue Manager] Failed to register expiry scans: %v", err)
	}

	m.cron.Start()
	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the schedules and the job queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping schedules and job queue...")
	<-m.cron.Stop().Done()
	m.queue.Stop()
	m.running = false
	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// EnqueueAcademySync queues a targeted billing sync for one academy.
func (m *Manager) EnqueueAcademySync(academyID uint) (*Job, error) {
	return m.queue.EnqueueJob(JobTypeBillingSync, BillingSyncJobPayload{AcademyID: academyID}.ToMap())
}
