package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

func TestEncryptDecryptField(t *testing.T) {
	env.SetEnv("FIELD_ENCRYPTION_KEY", "test-key")

	cipher, err := EncryptField("asthma, inhaler before training")
	require.NoError(t, err)
	assert.NotEqual(t, "asthma, inhaler before training", cipher)

	plain, err := DecryptField(cipher)
	require.NoError(t, err)
	assert.Equal(t, "asthma, inhaler before training", plain)
}

func TestEncryptFieldEmptyStaysEmpty(t *testing.T) {
	env.SetEnv("FIELD_ENCRYPTION_KEY", "test-key")

	cipher, err := EncryptField("")
	require.NoError(t, err)
	assert.Empty(t, cipher)

	plain, err := DecryptField("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestEncryptFieldNoncesDiffer(t *testing.T) {
	env.SetEnv("FIELD_ENCRYPTION_KEY", "test-key")

	a, err := EncryptField("same input")
	require.NoError(t, err)
	b, err := EncryptField("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "each encryption must use a fresh nonce")
}

func TestDecryptFieldRejectsGarbage(t *testing.T) {
	env.SetEnv("FIELD_ENCRYPTION_KEY", "test-key")

	_, err := DecryptField("not base64!!")
	assert.Error(t, err)

	_, err = DecryptField("dG9vc2hvcnQ")
	assert.Error(t, err)
}

func TestUploadTokenRoundTrip(t *testing.T) {
	token, err := GenerateUploadToken(7, 3, "medical_clearance", 1024*1024, time.Minute, "secret")
	require.NoError(t, err)

	claims, err := VerifyUploadToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, uint(3), claims.AcademyID)
	assert.Equal(t, "medical_clearance", claims.DocType)
	assert.Equal(t, int64(1024*1024), claims.MaxBytes)
}

func TestUploadTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateUploadToken(7, 3, "passport", 1024, time.Minute, "secret")
	require.NoError(t, err)

	_, err = VerifyUploadToken(token, "other")
	assert.Error(t, err)
}

func TestUploadTokenExpires(t *testing.T) {
	token, err := GenerateUploadToken(7, 3, "passport", 1024, -time.Minute, "secret")
	require.NoError(t, err)

	_, err = VerifyUploadToken(token, "secret")
	assert.ErrorContains(t, err, "expired")
}
