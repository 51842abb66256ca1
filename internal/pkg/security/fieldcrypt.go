package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

var errInvalidCiphertext = errors.New("invalid ciphertext")

// fieldKey derives the 32-byte data encryption key from configuration.
func fieldKey() ([]byte, error) {
	secret := env.GetEnv("FIELD_ENCRYPTION_KEY", "")
	if secret == "" {
		return nil, errors.New("FIELD_ENCRYPTION_KEY is not configured")
	}
	sum := sha256.Sum256([]byte(secret))
	return sum[:], nil
}

// EncryptField encrypts a sensitive value (e.g. player medical notes) with
// AES-256-GCM and returns a base64 string safe for a text column. Empty input
// stays empty so optional fields round-trip without a ciphertext marker.
func EncryptField(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := fieldKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptField reverses EncryptField.
func DecryptField(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}
	key, err := fieldKey()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errInvalidCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errInvalidCiphertext
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errInvalidCiphertext
	}
	return string(plaintext), nil
}
