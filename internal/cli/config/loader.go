package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDir returns ~/.resonance.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".resonance"
	}
	return filepath.Join(home, ".resonance")
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "cli.yaml")
}

// DefaultKeyPath returns the default sealing key path.
func DefaultKeyPath() string {
	return filepath.Join(DefaultDir(), "key")
}

// KeyPathFor returns the key file that sits next to the config at path.
func KeyPathFor(path string) string {
	if path == "" {
		return DefaultKeyPath()
	}
	return filepath.Join(filepath.Dir(path), "key")
}

// Load loads CLI configuration from file. A missing file yields Default().
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with mode 0600, replacing the file atomically.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cli-*.yaml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Merge applies RESONANCE_* environment values and then flags to cfg.
// Empty values are ignored.
func Merge(cfg *CLIConfig, env map[string]string, flags map[string]string) *CLIConfig {
	apply := func(values map[string]string, output, socket, handle string) {
		if v := strings.TrimSpace(values[output]); v != "" {
			cfg.Output = v
		}
		if v := strings.TrimSpace(values[socket]); v != "" {
			cfg.SocketPath = v
		}
		if v := strings.TrimSpace(values[handle]); v != "" && v != cfg.Handle {
			// A different handle invalidates the stored password.
			cfg.Handle = v
			cfg.SealedPassword = ""
		}
	}

	apply(env, "RESONANCE_OUTPUT", "RESONANCE_SOCKET", "RESONANCE_HANDLE")
	apply(flags, "output", "socket", "handle")
	return cfg
}

// EnvMap collects the RESONANCE_* variables Merge understands.
func EnvMap() map[string]string {
	out := make(map[string]string)
	for _, k := range []string{"RESONANCE_OUTPUT", "RESONANCE_SOCKET", "RESONANCE_HANDLE"} {
		if v, ok := os.LookupEnv(k); ok {
			out[k] = v
		}
	}
	return out
}
