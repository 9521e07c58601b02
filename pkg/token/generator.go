// Package token provides credential and identifier generation utilities.
package token

import (
	"crypto/rand"
	"io"
)

// Alphanumeric is the password alphabet.
const Alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultPasswordLength is the length of generated passwords.
const DefaultPasswordLength = 24

// Reader is the randomness source. Tests may replace it.
var Reader io.Reader = rand.Reader

// GeneratePassword generates a DefaultPasswordLength alphanumeric password.
func GeneratePassword() (string, error) {
	return GenerateString(DefaultPasswordLength, Alphanumeric)
}

// GenerateString draws length symbols from alphabet using byte % len(alphabet).
func GenerateString(length int, alphabet string) (string, error) {
	raw, err := GenerateBytes(length)
	if err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i, b := range raw {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// GenerateBytes generates random bytes.
func GenerateBytes(length int) ([]byte, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(Reader, bytes); err != nil {
		return nil, err
	}
	return bytes, nil
}
