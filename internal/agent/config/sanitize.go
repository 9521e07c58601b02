package config

import (
	"strings"

	"github.com/yndnr/resonance-go/internal/xrpc"
)

// Sanitize returns a copy of the config with secrets masked for logging.
func Sanitize(cfg *AgentConfig) *AgentConfig {
	sanitized := *cfg
	sanitized.Network.Routes = append([]xrpc.Route(nil), cfg.Network.Routes...)

	if sanitized.Account.Password != "" {
		sanitized.Account.Password = maskSecret(sanitized.Account.Password)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
