package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/resonance-go/internal/core/service"
	"github.com/yndnr/resonance-go/internal/gateway"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMetricsAddr  = "127.0.0.1:9465"
	DefaultPublishRate  = 5.0
	DefaultPublishBurst = 10
	DefaultMaxConns     = 32

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// DefaultDir returns the per-user state directory, ~/.resonance.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".resonance"
	}
	return filepath.Join(home, ".resonance")
}

// DefaultCredentialsFile returns the default credentials file path.
func DefaultCredentialsFile() string {
	return filepath.Join(DefaultDir(), "credentials.yaml")
}

// DefaultConfigFile returns the default agent configuration path.
func DefaultConfigFile() string {
	return filepath.Join(DefaultDir(), "agent.yaml")
}

// Default returns the default agent configuration.
func Default() *AgentConfig {
	return &AgentConfig{
		Account: AccountSection{
			UseAutoAccount:  true,
			CredentialsFile: DefaultCredentialsFile(),
		},
		Network: NetworkSection{
			DefaultBaseURL: xrpc.DefaultBaseURL,
			Timeout:        DefaultTimeout,
			MaxRedirects:   xrpc.DefaultMaxRedirects,
		},
		Publish:   service.DefaultPublisherConfig(),
		Provision: service.DefaultProvisionConfig(),
		Gateway: GatewaySection{
			Enabled:        true,
			SocketPath:     gateway.DefaultSocketPath(),
			PublishRate:    DefaultPublishRate,
			PublishBurst:   DefaultPublishBurst,
			MaxConnections: DefaultMaxConns,
		},
		Metrics: MetricsSection{
			Enabled: false,
			Addr:    DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
