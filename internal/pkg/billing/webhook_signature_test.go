package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	header := signPayload(payload, testWebhookSecret, now)

	assert.True(t, VerifyWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance))
}

func TestVerifyWebhookSignatureRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(payload, "whsec_other", now)

	assert.False(t, VerifyWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance))
}

func TestVerifyWebhookSignatureRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	header := signPayload([]byte(`{"id":"evt_1"}`), testWebhookSecret, now)

	assert.False(t, VerifyWebhookSignature([]byte(`{"id":"evt_2"}`), header, testWebhookSecret, now, DefaultSignatureTolerance))
}

func TestVerifyWebhookSignatureRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	header := signPayload(payload, testWebhookSecret, now.Add(-10*time.Minute))

	assert.False(t, VerifyWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance),
		"signatures older than the tolerance are replays")

	// Zero tolerance disables the replay window entirely.
	assert.True(t, VerifyWebhookSignature(payload, header, testWebhookSecret, now, 0))
}

func TestVerifyWebhookSignatureRejectsMalformedHeaders(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)

	assert.False(t, VerifyWebhookSignature(payload, "", testWebhookSecret, now, DefaultSignatureTolerance))
	assert.False(t, VerifyWebhookSignature(payload, "v1=deadbeef", testWebhookSecret, now, DefaultSignatureTolerance))
	assert.False(t, VerifyWebhookSignature(payload, "t=notanumber,v1=deadbeef", testWebhookSecret, now, DefaultSignatureTolerance))
	assert.False(t, VerifyWebhookSignature(payload, fmt.Sprintf("t=%d", now.Unix()), testWebhookSecret, now, DefaultSignatureTolerance))
	assert.False(t, VerifyWebhookSignature(payload, signPayload(payload, testWebhookSecret, now), "", now, DefaultSignatureTolerance))
}

func TestVerifyWebhookSignatureAcceptsMultipleCandidates(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)
	valid := signPayload(payload, testWebhookSecret, now)

	// Key rotation sends several v1 entries; one match is enough.
	header := fmt.Sprintf("%s,v1=%s", valid, hex.EncodeToString(make([]byte, 32)))
	assert.True(t, VerifyWebhookSignature(payload, header, testWebhookSecret, now, DefaultSignatureTolerance))
}
