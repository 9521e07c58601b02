package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/yndnr/resonance-go/internal/core/service"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *AgentConfig) error {
	return errors.Join(
		verifyAccount(&cfg.Account),
		verifyNetwork(&cfg.Network),
		verifyPublish(cfg),
		verifyProvision(cfg),
		verifyGateway(&cfg.Gateway),
		verifyMetrics(&cfg.Metrics),
		verifyLog(&cfg.Log),
	)
}

func verifyAccount(cfg *AccountSection) error {
	if (cfg.Handle == "") != (cfg.Password == "") {
		return errors.New("account.handle and account.password must be set together")
	}
	if cfg.UseAutoAccount && cfg.CredentialsFile == "" {
		return errors.New("account.credentials_file is required when use_auto_account is enabled")
	}
	return nil
}

func verifyNetwork(cfg *NetworkSection) error {
	if err := verifyBaseURL("network.default_base_url", cfg.DefaultBaseURL); err != nil {
		return err
	}
	for i, r := range cfg.EffectiveRoutes() {
		if !strings.HasPrefix(r.Suffix, ".") {
			return fmt.Errorf("network.routes[%d].suffix must start with '.'", i)
		}
		if err := verifyBaseURL(fmt.Sprintf("network.routes[%d].base_url", i), r.BaseURL); err != nil {
			return err
		}
	}
	if cfg.Timeout <= 0 {
		return errors.New("network.timeout must be positive")
	}
	if cfg.MaxRedirects < 0 || cfg.MaxRedirects > 20 {
		return errors.New("network.max_redirects must be between 0 and 20")
	}
	if cfg.CAFile != "" {
		if _, err := os.Stat(cfg.CAFile); err != nil {
			return fmt.Errorf("network.ca_file: %w", err)
		}
	}
	return nil
}

func verifyBaseURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

func verifyPublish(cfg *AgentConfig) error {
	if strings.Count(cfg.Publish.Collection, ".") < 2 {
		return fmt.Errorf("publish.collection %q is not an NSID", cfg.Publish.Collection)
	}
	if cfg.Publish.RefreshSkew < 0 {
		return errors.New("publish.refresh_skew must not be negative")
	}
	return nil
}

func verifyProvision(cfg *AgentConfig) error {
	p := cfg.Provision
	if p.MaxAttempts < 1 || p.MaxAttempts > service.DefaultMaxAttempts {
		return fmt.Errorf("provision.max_attempts must be between 1 and %d", service.DefaultMaxAttempts)
	}
	if p.BackoffBase < 0 || p.BackoffMax < 0 {
		return errors.New("provision backoff durations must not be negative")
	}
	if strings.Trim(p.HandleDomain, ".") == "" {
		return errors.New("provision.handle_domain is required")
	}
	return nil
}

func verifyGateway(cfg *GatewaySection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.SocketPath == "" {
		return errors.New("gateway.socket_path is required when the gateway is enabled")
	}
	if cfg.PublishRate < 0 || cfg.PublishBurst < 0 {
		return errors.New("gateway publish rate and burst must not be negative")
	}
	if cfg.MaxConnections < 1 {
		return errors.New("gateway.max_connections must be at least 1")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("metrics.addr: %w", err)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}
