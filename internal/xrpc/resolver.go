package xrpc

import (
	"strings"

	"github.com/yndnr/resonance-go/internal/core/domain"
)

// Well-known server base URLs.
const (
	DefaultBaseURL    = "https://bsky.social"
	SelfHostedBaseURL = "https://sync.terasync.app"
)

// Route sends handles ending in Suffix to BaseURL.
type Route struct {
	Suffix  string `koanf:"suffix" yaml:"suffix"`
	BaseURL string `koanf:"base_url" yaml:"base_url"`
}

// DefaultRoutes returns the built-in routing table.
func DefaultRoutes() []Route {
	return []Route{
		{Suffix: ".sync.terasync.app", BaseURL: SelfHostedBaseURL},
		{Suffix: ".bsky.social", BaseURL: DefaultBaseURL},
	}
}

// Resolver maps handles to server base URLs by domain suffix.
// It never fails; unmatched handles go to the default base URL.
type Resolver struct {
	routes   []Route
	fallback string
}

// NewResolver creates a resolver. Routes are matched in order, so more
// specific suffixes must come first. An empty fallback means DefaultBaseURL.
func NewResolver(routes []Route, fallback string) *Resolver {
	if fallback == "" {
		fallback = DefaultBaseURL
	}

	cleaned := make([]Route, 0, len(routes))
	for _, r := range routes {
		if r.Suffix == "" || r.BaseURL == "" {
			continue
		}
		cleaned = append(cleaned, Route{
			Suffix:  r.Suffix,
			BaseURL: strings.TrimRight(r.BaseURL, "/"),
		})
	}

	return &Resolver{
		routes:   cleaned,
		fallback: strings.TrimRight(fallback, "/"),
	}
}

// NewDefaultResolver creates a resolver with DefaultRoutes.
func NewDefaultResolver() *Resolver {
	return NewResolver(DefaultRoutes(), DefaultBaseURL)
}

// Resolve returns the base URL serving handle.
func (r *Resolver) Resolve(handle string) string {
	handle = strings.TrimSpace(handle)
	for _, route := range r.routes {
		if domain.HasSuffixFold(handle, route.Suffix) {
			return route.BaseURL
		}
	}
	return r.fallback
}

// Routes returns a copy of the routing table.
func (r *Resolver) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Fallback returns the base URL used when no route matches.
func (r *Resolver) Fallback() string {
	return r.fallback
}
