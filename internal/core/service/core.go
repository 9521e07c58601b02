package service

import "github.com/yndnr/resonance-go/internal/xrpc"

// Config groups the configuration of the core services.
type Config struct {
	Publish   PublisherConfig `koanf:"publish" yaml:"publish"`
	Provision ProvisionConfig `koanf:"provision" yaml:"provision"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Publish:   DefaultPublisherConfig(),
		Provision: DefaultProvisionConfig(),
	}
}

// Core bundles the services that share one session.
type Core struct {
	Sessions    *SessionManager
	Publisher   *Publisher
	Provisioner *Provisioner
}

// NewCore wires a SessionManager, Publisher and Provisioner around client.
func NewCore(client Transport, resolver *xrpc.Resolver, cfg Config, opts ...Option) *Core {
	if resolver == nil {
		resolver = xrpc.NewDefaultResolver()
	}
	sessions := NewSessionManager(client, resolver, opts...)
	return &Core{
		Sessions:    sessions,
		Publisher:   NewPublisher(sessions, client, cfg.Publish, opts...),
		Provisioner: NewProvisioner(client, resolver, cfg.Provision, opts...),
	}
}
