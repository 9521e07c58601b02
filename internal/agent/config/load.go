package config

import (
	"fmt"
	"os"

	"github.com/yndnr/resonance-go/internal/infra/confloader"
)

// Load builds the configuration from defaults, the optional file at path,
// RESONANCE_* environment variables and overrides, then verifies it.
// A missing file at the default location is not an error.
func Load(path string, overrides map[string]any) (*AgentConfig, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigFile()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}

	if err := confloader.Load(cfg, confloader.Sources{File: path, Overrides: overrides}); err != nil {
		return nil, err
	}

	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
