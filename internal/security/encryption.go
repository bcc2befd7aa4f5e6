// path: internal/security/encryption.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
)

// CredentialCipher encrypts and decrypts whole PlatformCredential value
// bundles with AES-256-GCM, generalized from the teacher's per-field
// TokenEncryption to a single encrypted blob per credential row.
type CredentialCipher struct {
	key []byte
}

func NewCredentialCipher(encryptionKey string) (*CredentialCipher, error) {
	key := []byte(encryptionKey)
	if len(key) != 32 {
		return nil, errors.New("security: encryption key must be 32 bytes for AES-256")
	}
	return &CredentialCipher{key: key}, nil
}

// Seal marshals values to JSON and encrypts them into a single blob
// suitable for PlatformCredential.EncryptedBlob.
func (c *CredentialCipher) Seal(values map[string]string) ([]byte, error) {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal back into its value map.
func (c *CredentialCipher) Open(blob []byte) (map[string]string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, errors.New("security: ciphertext too short")
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var values map[string]string
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, err
	}
	return values, nil
}
