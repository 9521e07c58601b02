package adaptive

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSealed is returned by Open for strings Seal did not produce.
var ErrMalformedSealed = errors.New("adaptive: malformed sealed value")

// Seal encrypts plaintext and returns "<cipher type>:<base64url>". The
// cipher type travels with the value so Open works on any platform.
func Seal(c Cipher, plaintext, additionalData []byte) (string, error) {
	ct, err := c.Encrypt(plaintext, additionalData)
	if err != nil {
		return "", err
	}
	return string(c.Type()) + ":" + base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open decrypts a value produced by Seal with key.
func Open(key []byte, sealed string, additionalData []byte) ([]byte, error) {
	kind, encoded, ok := strings.Cut(sealed, ":")
	if !ok || encoded == "" {
		return nil, ErrMalformedSealed
	}

	ct, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSealed, err)
	}

	c, err := NewWithType(key, CipherType(kind))
	if err != nil {
		return nil, err
	}
	return c.Decrypt(ct, additionalData)
}
