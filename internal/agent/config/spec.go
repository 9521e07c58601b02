package config

import (
	"time"

	"github.com/yndnr/resonance-go/internal/core/service"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// AgentConfig is the root configuration for resonance-agent.
type AgentConfig struct {
	Account   AccountSection          `koanf:"account" yaml:"account"`
	Network   NetworkSection          `koanf:"network" yaml:"network"`
	Publish   service.PublisherConfig `koanf:"publish" yaml:"publish"`
	Provision service.ProvisionConfig `koanf:"provision" yaml:"provision"`
	Gateway   GatewaySection          `koanf:"gateway" yaml:"gateway"`
	Metrics   MetricsSection          `koanf:"metrics" yaml:"metrics"`
	Log       LogSection              `koanf:"log" yaml:"log"`
}

// AccountSection configures which account the agent signs in with.
type AccountSection struct {
	Handle   string `koanf:"handle" yaml:"handle"`
	Password string `koanf:"password" yaml:"password"`

	// UseAutoAccount provisions a throwaway account when no credentials
	// are configured and none are stored in CredentialsFile.
	UseAutoAccount bool `koanf:"use_auto_account" yaml:"use_auto_account"`

	// CredentialsFile stores provisioned credentials between runs.
	CredentialsFile string `koanf:"credentials_file" yaml:"credentials_file"`
}

// NetworkSection configures the XRPC client.
type NetworkSection struct {
	// Routes map handle suffixes to server base URLs, matched in order.
	// Empty means xrpc.DefaultRoutes.
	Routes         []xrpc.Route  `koanf:"routes" yaml:"routes"`
	DefaultBaseURL string        `koanf:"default_base_url" yaml:"default_base_url"`
	Timeout        time.Duration `koanf:"timeout" yaml:"timeout"`
	MaxRedirects   int           `koanf:"max_redirects" yaml:"max_redirects"`
	UserAgent      string        `koanf:"user_agent" yaml:"user_agent"`

	// CAFile is a PEM file or directory trusted in addition to the system
	// roots, for servers behind a private CA.
	CAFile string `koanf:"ca_file" yaml:"ca_file"`
}

// GatewaySection configures the local Unix socket gateway.
type GatewaySection struct {
	Enabled    bool   `koanf:"enabled" yaml:"enabled"`
	SocketPath string `koanf:"socket_path" yaml:"socket_path"`

	// PublishRate and PublishBurst pace publish requests (per second).
	PublishRate  float64 `koanf:"publish_rate" yaml:"publish_rate"`
	PublishBurst int     `koanf:"publish_burst" yaml:"publish_burst"`

	MaxConnections int `koanf:"max_connections" yaml:"max_connections"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// EffectiveRoutes returns the configured routes, or the built-in table
// when none are configured.
func (n NetworkSection) EffectiveRoutes() []xrpc.Route {
	if len(n.Routes) == 0 {
		return xrpc.DefaultRoutes()
	}
	return n.Routes
}
