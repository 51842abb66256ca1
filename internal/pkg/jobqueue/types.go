package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeBillingSync            JobType = "billing_sync"
	JobTypeSubscriptionExpiryScan JobType = "subscription_expiry_scan"
	JobTypeDocumentExpiryScan     JobType = "document_expiry_scan"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// MarkAsProcessing transitions the job into the processing state
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkAsCompleted transitions the job into the completed state
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed records the failure and bumps the retry counter
func (j *Job) MarkAsFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMsg = errMsg
	j.RetryCount++
	j.UpdatedAt = time.Now()
}

// MarkAsRetrying transitions a failed job back into the retry state
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// IsRetryable reports whether the job still has retries left
func (j *Job) IsRetryable() bool {
	return j.RetryCount < j.MaxRetries
}

// BillingSyncJobPayload contains the payload for billing sync jobs.
// AcademyID zero means "sync all configured academies".
type BillingSyncJobPayload struct {
	AcademyID uint `json:"academy_id"`
}

// ToMap converts the payload to a map for storage
func (p BillingSyncJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"academy_id": p.AcademyID,
	}
}

// BillingSyncJobPayloadFromMap creates a payload from a map
func BillingSyncJobPayloadFromMap(data map[string]interface{}) (*BillingSyncJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload BillingSyncJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// DocumentExpiryScanJobPayload contains the payload for expiry scans.
type DocumentExpiryScanJobPayload struct {
	WarnBeforeDays int `json:"warn_before_days"`
}

// ToMap converts the payload to a map for storage
func (p DocumentExpiryScanJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"warn_before_days": p.WarnBeforeDays,
	}
}

// DocumentExpiryScanJobPayloadFromMap creates a payload from a map
func DocumentExpiryScanJobPayloadFromMap(data map[string]interface{}) (*DocumentExpiryScanJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload DocumentExpiryScanJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}
