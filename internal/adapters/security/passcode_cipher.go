package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// XChaChaPasscodeCipher seals share passcodes with XChaCha20-Poly1305.
// Passcodes are stored encrypted rather than hashed because owners can reveal
// them from the dashboard; the random 24-byte nonce is prepended to each
// ciphertext.
type XChaChaPasscodeCipher struct {
	aead cipher.AEAD
}

// NewXChaChaPasscodeCipher builds a cipher from a base64-encoded 256-bit key.
func NewXChaChaPasscodeCipher(keyBase64 string) (*XChaChaPasscodeCipher, error) {
	if keyBase64 == "" {
		return nil, errors.New("passcode encryption key is required")
	}
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode passcode encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("passcode encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &XChaChaPasscodeCipher{aead: aead}, nil
}

// NewEphemeralPasscodeCipher generates a random key for local/dev use.
// Ciphertexts do not survive a restart; production must configure a key.
func NewEphemeralPasscodeCipher() (*XChaChaPasscodeCipher, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &XChaChaPasscodeCipher{aead: aead}, nil
}

func (c *XChaChaPasscodeCipher) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (c *XChaChaPasscodeCipher) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < c.aead.NonceSize() {
		return "", errors.New("ciphertext shorter than nonce")
	}
	nonce, sealed := ciphertext[:c.aead.NonceSize()], ciphertext[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
