package adaptive

import "golang.org/x/crypto/chacha20poly1305"

// NewXChaCha20 creates an XChaCha20-Poly1305 cipher. Its 24-byte nonce
// makes random nonces safe for any number of messages.
func NewXChaCha20(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &aeadCipher{kind: CipherXChaCha20, aead: aead}, nil
}
