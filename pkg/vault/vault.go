// Package vault encrypts persisted message content at rest. Values are
// AES-256-GCM sealed and stored as "enc$" + base64(nonce||ciphertext).
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prefix marks an encrypted value. Reads treat anything without it as
// legacy plaintext; see Decrypt.
const Prefix = "enc$"

var ErrBadKey = errors.New("encryption key must be 32 bytes")

type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a base64-encoded 256-bit key.
func New(keyBase64 string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyBase64))
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrBadKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Vault{aead: aead}, nil
}

// GenerateKey returns a fresh base64-encoded 256-bit key.
func GenerateKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Values lacking the "enc$" prefix predate
// at-rest encryption and are returned verbatim; this is a migration shim,
// not a permanent dual-format contract. The migrate subcommand rewrites
// such rows once.
func (v *Vault) Decrypt(stored string) (string, error) {
	if stored == "" {
		return "", nil
	}
	if !strings.HasPrefix(stored, Prefix) {
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, Prefix))
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	if len(data) < v.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce, sealed := data[:v.aead.NonceSize()], data[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("opening ciphertext: %w", err)
	}

	return string(plaintext), nil
}

// IsEncrypted reports whether a stored value carries the ciphertext prefix.
func IsEncrypted(stored string) bool {
	return strings.HasPrefix(stored, Prefix)
}
