// Package crypto implements the chunk-level cipher used by the aggregator
// pipeline before a chunk is handed to the backend pool for storage.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/vaultmesh/vaultmesh/pkg/vmerr"
)

// CipherTag identifies the encryption scheme applied to a chunk's payload.
// It is stored alongside each file record so future cipher changes remain
// decodable against historical data.
const CipherTag = "aes-256-gcm"

// Engine encrypts and decrypts chunk payloads with AES-256-GCM. A single
// Engine instance is safe for concurrent use; it holds no mutable state
// beyond the fixed key.
type Engine struct {
	key []byte // 32 bytes for AES-256
}

// NewEngine creates an Engine with the given 32-byte AES-256 key.
func NewEngine(key []byte) (*Engine, error) {
	if len(key) != 32 {
		return nil, vmerr.New(vmerr.KindCrypto, "crypto.NewEngine",
			fmt.Sprintf("encryption key must be 32 bytes for AES-256, got %d", len(key)))
	}
	return &Engine{key: key}, nil
}

// NewEngineFromPassphrase derives a 32-byte key from a passphrase via
// SHA-256. Intended for operator-supplied configuration, not for deriving
// per-file keys.
func NewEngineFromPassphrase(passphrase string) (*Engine, error) {
	if passphrase == "" {
		return nil, vmerr.New(vmerr.KindCrypto, "crypto.NewEngineFromPassphrase", "passphrase cannot be empty")
	}
	hash := sha256.Sum256([]byte(passphrase))
	return NewEngine(hash[:])
}

// Encrypt seals plaintext with AES-256-GCM and prepends the nonce to the
// returned ciphertext so Decrypt needs no side channel to recover it.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindCrypto, "crypto.Encrypt", "create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindCrypto, "crypto.Encrypt", "create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, vmerr.Wrap(vmerr.KindCrypto, "crypto.Encrypt", "generate nonce", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt, splitting the prepended
// nonce off the front before calling gcm.Open.
func (e *Engine) Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindCrypto, "crypto.Decrypt", "create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindCrypto, "crypto.Decrypt", "create GCM", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, vmerr.New(vmerr.KindCrypto, "crypto.Decrypt", "ciphertext shorter than nonce")
	}

	nonce, body := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, vmerr.Wrap(vmerr.KindCrypto, "crypto.Decrypt", "authentication failed", err)
	}

	return plaintext, nil
}

// DeriveKeyFromPassphrase returns the SHA-256 key bytes that
// NewEngineFromPassphrase derives from passphrase, without constructing an
// Engine.
func DeriveKeyFromPassphrase(passphrase string) []byte {
	hash := sha256.Sum256([]byte(passphrase))
	return hash[:]
}
