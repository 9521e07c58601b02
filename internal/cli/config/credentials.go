package config

import (
	"errors"
	"fmt"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/pkg/crypto/adaptive"
)

// ErrNoCredentials is returned when no account is stored.
var ErrNoCredentials = errors.New("no stored credentials; run 'resonance-cli login' first")

// SetCredentials stores creds, sealing the password under key.
func (c *CLIConfig) SetCredentials(key []byte, creds domain.Credentials) error {
	if creds.IsZero() {
		return domain.ErrInvalidCredentials
	}

	cipher, err := adaptive.New(key)
	if err != nil {
		return err
	}
	sealed, err := adaptive.Seal(cipher, []byte(creds.Password), []byte(creds.Handle))
	if err != nil {
		return fmt.Errorf("seal password: %w", err)
	}

	c.Handle = creds.Handle
	c.SealedPassword = sealed
	return nil
}

// Credentials returns the stored account with its password opened.
func (c *CLIConfig) Credentials(key []byte) (domain.Credentials, error) {
	if c.Handle == "" || c.SealedPassword == "" {
		return domain.Credentials{}, ErrNoCredentials
	}

	password, err := adaptive.Open(key, c.SealedPassword, []byte(c.Handle))
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("open stored password: %w", err)
	}
	return domain.Credentials{Handle: c.Handle, Password: string(password)}, nil
}

// HasCredentials reports whether an account is stored.
func (c *CLIConfig) HasCredentials() bool {
	return c.Handle != "" && c.SealedPassword != ""
}

// ClearCredentials forgets the stored account.
func (c *CLIConfig) ClearCredentials() {
	c.Handle = ""
	c.SealedPassword = ""
}
