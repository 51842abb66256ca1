package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultSignatureTolerance bounds how old a webhook timestamp may be before
// the signature is rejected, guarding against replay.
const DefaultSignatureTolerance = 5 * time.Minute

// VerifyWebhookSignature checks a Stripe-style signature header of the form
// "t=<unix>,v1=<hex hmac>[,v1=...]" against the raw payload. The signed
// message is "<timestamp>.<payload>" with HMAC-SHA256 over the shared secret.
func VerifyWebhookSignature(payload []byte, signatureHeader, secret string, now time.Time, tolerance time.Duration) bool {
	header := strings.TrimSpace(signatureHeader)
	if header == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	var timestamp int64
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return false
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(strings.ToLower(kv[1]))
			if err != nil {
				continue
			}
			candidates = append(candidates, sig)
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return false
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age < 0 {
			age = -age
		}
		if age > tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, candidate := range candidates {
		if hmac.Equal(expected, candidate) {
			return true
		}
	}
	return false
}
