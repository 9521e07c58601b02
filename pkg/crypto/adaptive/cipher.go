package adaptive

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
	"runtime"
)

// CipherType identifies the cipher algorithm.
type CipherType string

const (
	CipherAESGCM    CipherType = "aes-gcm"
	CipherXChaCha20 CipherType = "xchacha20-poly1305"
)

// KeySize is the key length accepted by every cipher in this package.
const KeySize = 32

// ErrInvalidKey is returned for keys that are not KeySize bytes.
var ErrInvalidKey = errors.New("adaptive: key must be 32 bytes")

// Cipher provides authenticated encryption.
type Cipher interface {
	Type() CipherType

	// Encrypt returns nonce||ciphertext||tag.
	Encrypt(plaintext, additionalData []byte) ([]byte, error)

	// Decrypt reverses Encrypt.
	Decrypt(ciphertext, additionalData []byte) ([]byte, error)

	NonceSize() int
	Overhead() int
}

// New creates a cipher for key, preferring AES-GCM where the platform
// accelerates it and XChaCha20-Poly1305 elsewhere.
func New(key []byte) (Cipher, error) {
	if hasAESAcceleration() {
		return NewAESGCM(key)
	}
	return NewXChaCha20(key)
}

// NewWithType creates a cipher of the specified type.
func NewWithType(key []byte, cipherType CipherType) (Cipher, error) {
	switch cipherType {
	case CipherAESGCM:
		return NewAESGCM(key)
	case CipherXChaCha20:
		return NewXChaCha20(key)
	default:
		return nil, errors.New("adaptive: unknown cipher type " + string(cipherType))
	}
}

// Go uses AES instructions on amd64 and arm64.
func hasAESAcceleration() bool {
	switch runtime.GOARCH {
	case "amd64", "arm64":
		return true
	default:
		return false
	}
}

// aeadCipher wraps a cipher.AEAD with random nonces.
type aeadCipher struct {
	kind CipherType
	aead cipher.AEAD
}

func (c *aeadCipher) Type() CipherType { return c.kind }

func (c *aeadCipher) NonceSize() int { return c.aead.NonceSize() }

func (c *aeadCipher) Overhead() int { return c.aead.Overhead() }

func (c *aeadCipher) Encrypt(plaintext, additionalData []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, plaintext, additionalData), nil
}

func (c *aeadCipher) Decrypt(ciphertext, additionalData []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(ciphertext) < n+c.aead.Overhead() {
		return nil, errors.New("adaptive: ciphertext too short")
	}
	return c.aead.Open(nil, ciphertext[:n], ciphertext[n:], additionalData)
}
