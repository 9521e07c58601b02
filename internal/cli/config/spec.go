package config

import (
	"time"

	"github.com/yndnr/resonance-go/internal/xrpc"
)

// CLIConfig is the configuration for resonance-cli.
type CLIConfig struct {
	// Handle and SealedPassword are the stored account. SealedPassword is
	// never plaintext; see SetCredentials.
	Handle         string `yaml:"handle,omitempty"`
	SealedPassword string `yaml:"password,omitempty"`

	// UseAutoAccount makes login provision an account when none is stored.
	UseAutoAccount bool `yaml:"use_auto_account"`

	// Routes override the built-in handle routing table.
	Routes         []xrpc.Route `yaml:"routes,omitempty"`
	DefaultBaseURL string       `yaml:"default_base_url,omitempty"`

	// CAFile adds a private CA (PEM file or directory) to the system roots.
	CAFile string `yaml:"ca_file,omitempty"`

	Output     string        `yaml:"output"` // table, json, yaml
	SocketPath string        `yaml:"socket_path,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Output:  "table",
		Timeout: 30 * time.Second,
	}
}

// Resolver builds the handle resolver described by the config.
func (c *CLIConfig) Resolver() *xrpc.Resolver {
	routes := c.Routes
	if len(routes) == 0 {
		routes = xrpc.DefaultRoutes()
	}
	return xrpc.NewResolver(routes, c.DefaultBaseURL)
}
