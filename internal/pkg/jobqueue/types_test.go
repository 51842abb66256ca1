package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: DefaultMaxRetries}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	require.NotNil(t, job.CompletedAt)
}

func TestJobRetryBookkeeping(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 2}

	job.MarkAsFailed("provider timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsFailed("provider timeout")
	assert.Equal(t, 2, job.RetryCount)
	assert.False(t, job.IsRetryable())
}

func TestBillingSyncPayloadRoundTrip(t *testing.T) {
	payload := BillingSyncJobPayload{AcademyID: 12}

	decoded, err := BillingSyncJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(12), decoded.AcademyID)

	// A full-sync job carries no academy.
	decoded, err = BillingSyncJobPayloadFromMap(BillingSyncJobPayload{}.ToMap())
	require.NoError(t, err)
	assert.Zero(t, decoded.AcademyID)
}

func TestDocumentExpiryPayloadRoundTrip(t *testing.T) {
	decoded, err := DocumentExpiryScanJobPayloadFromMap(DocumentExpiryScanJobPayload{WarnBeforeDays: 14}.ToMap())
	require.NoError(t, err)
	assert.Equal(t, 14, decoded.WarnBeforeDays)
}
