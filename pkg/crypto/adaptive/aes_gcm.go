package adaptive

import (
	"crypto/aes"
	"crypto/cipher"
)

// NewAESGCM creates an AES-256-GCM cipher.
func NewAESGCM(key []byte) (Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{kind: CipherAESGCM, aead: aead}, nil
}
