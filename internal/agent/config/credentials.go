package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/resonance-go/internal/core/domain"
)

// ErrNoStoredCredentials is returned when the credentials file does not exist.
var ErrNoStoredCredentials = errors.New("no stored credentials")

// storedCredentials is the on-disk layout of the credentials file.
type storedCredentials struct {
	Handle    string `yaml:"handle"`
	Password  string `yaml:"password"`
	Provision string `yaml:"provisioned,omitempty"`
}

// LoadCredentials reads credentials persisted by SaveCredentials.
func LoadCredentials(path string) (domain.Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Credentials{}, ErrNoStoredCredentials
	}
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("read credentials: %w", err)
	}

	var stored storedCredentials
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return domain.Credentials{}, fmt.Errorf("parse credentials %s: %w", path, err)
	}

	creds := domain.Credentials{Handle: stored.Handle, Password: stored.Password}
	if creds.IsZero() {
		return domain.Credentials{}, ErrNoStoredCredentials
	}
	return creds, nil
}

// SaveCredentials writes creds to path with owner-only permissions.
// The file is replaced atomically.
func SaveCredentials(path string, creds domain.Credentials, provisioned string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	data, err := yaml.Marshal(storedCredentials{
		Handle:    creds.Handle,
		Password:  creds.Password,
		Provision: provisioned,
	})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
