package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/telemetry/metric"
	"github.com/yndnr/resonance-go/internal/xrpc"
	"github.com/yndnr/resonance-go/pkg/token"
)

// unresolvableMarker appears in the 400 body of resolveHandle for a handle
// nobody has claimed.
const unresolvableMarker = "Unable to resolve handle"

// Provisioning defaults.
const (
	DefaultMaxAttempts      = 5
	DefaultBackoffBase      = 500 * time.Millisecond
	DefaultBackoffMax       = 5 * time.Second
	DefaultRequestsPerSec   = 2.0
	DefaultRequestBurst     = 2
	generatedDigestLength   = 8
	generatedHandleNonceLen = 4
)

// ProvisionConfig holds configuration for Provisioner.
type ProvisionConfig struct {
	// HandlePrefix is prepended to generated handles.
	HandlePrefix string `koanf:"handle_prefix" yaml:"handle_prefix"`

	// HandleDomain is the domain generated and custom handles live under.
	HandleDomain string `koanf:"handle_domain" yaml:"handle_domain"`

	// MaxAttempts bounds how many generated handles CreateAutoAccount tries.
	// It may lower DefaultMaxAttempts but never raise it.
	MaxAttempts int `koanf:"max_attempts" yaml:"max_attempts"`

	// BackoffBase and BackoffMax shape the wait between attempts.
	BackoffBase time.Duration `koanf:"backoff_base" yaml:"backoff_base"`
	BackoffMax  time.Duration `koanf:"backoff_max" yaml:"backoff_max"`

	// RequestsPerSecond paces outbound provisioning calls. Zero or
	// negative means unlimited.
	RequestsPerSecond float64 `koanf:"requests_per_second" yaml:"requests_per_second"`
	RequestBurst      int     `koanf:"request_burst" yaml:"request_burst"`
}

// DefaultProvisionConfig returns default configuration.
func DefaultProvisionConfig() ProvisionConfig {
	return ProvisionConfig{
		HandlePrefix:      domain.DefaultHandlePrefix,
		HandleDomain:      domain.DefaultHandleDomain,
		MaxAttempts:       DefaultMaxAttempts,
		BackoffBase:       DefaultBackoffBase,
		BackoffMax:        DefaultBackoffMax,
		RequestsPerSecond: DefaultRequestsPerSec,
		RequestBurst:      DefaultRequestBurst,
	}
}

// createAccountRequest is the body of com.atproto.server.createAccount.
type createAccountRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// Provisioner creates accounts, either with generated throwaway handles or
// with a user-chosen label.
type Provisioner struct {
	client   Transport
	resolver *xrpc.Resolver
	cfg      ProvisionConfig
	limiter  *rate.Limiter
	logger   logger.Logger
	metrics  *metric.Registry
	now      func() time.Time

	// sleep and jitter are replaced in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(n int64) int64
}

// NewProvisioner creates a Provisioner. Zero fields in cfg take defaults.
func NewProvisioner(client Transport, resolver *xrpc.Resolver, cfg ProvisionConfig, opts ...Option) *Provisioner {
	o := buildOptions(opts)
	if resolver == nil {
		resolver = xrpc.NewDefaultResolver()
	}

	def := DefaultProvisionConfig()
	if cfg.HandlePrefix == "" {
		cfg.HandlePrefix = def.HandlePrefix
	}
	if cfg.HandleDomain == "" {
		cfg.HandleDomain = def.HandleDomain
	}
	cfg.HandleDomain = strings.TrimPrefix(cfg.HandleDomain, ".")
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > DefaultMaxAttempts {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffMax < cfg.BackoffBase {
		cfg.BackoffMax = cfg.BackoffBase
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.RequestBurst
	if burst <= 0 {
		burst = 1
	}

	return &Provisioner{
		client:   client,
		resolver: resolver,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   o.logger,
		metrics:  o.metrics,
		now:      o.now,
		sleep:    sleepContext,
		jitter:   rand.Int64N,
	}
}

// Config returns the effective configuration.
func (p *Provisioner) Config() ProvisionConfig {
	return p.cfg
}

// GenerateHandle returns "<prefix>-<8 hex>.<domain>". The hex digest is
// taken from SHA-256 over the current unix seconds and a random nonce.
func (p *Provisioner) GenerateHandle() (string, error) {
	nonce, err := token.GenerateBytes(generatedHandleNonceLen)
	if err != nil {
		return "", fmt.Errorf("generate handle nonce: %w", err)
	}
	digest := token.TimestampDigest(p.now().Unix(), nonce, generatedDigestLength)
	return fmt.Sprintf("%s-%s.%s", p.cfg.HandlePrefix, digest, p.cfg.HandleDomain), nil
}

// GeneratePassword returns a random alphanumeric password.
func (p *Provisioner) GeneratePassword() (string, error) {
	return token.GeneratePassword()
}

// IsValidHandleLabel reports whether label can become a custom handle.
func (p *Provisioner) IsValidHandleLabel(label string) bool {
	return domain.IsValidHandleLabel(label)
}

// CheckAvailability asks the server hosting handle whether it resolves.
//
// An unresolvable handle is available and yields (true, nil). A handle
// that resolves yields (false, ErrHandleTaken). Any other answer is an
// error.
func (p *Provisioner) CheckAvailability(ctx context.Context, handle string) (bool, error) {
	available, err := p.checkAvailability(ctx, handle)

	result := metric.Result(err)
	if errors.Is(err, domain.ErrHandleTaken) {
		result = metric.ResultTaken
	}
	p.metrics.ObserveHandleCheck(result)

	return available, err
}

func (p *Provisioner) checkAvailability(ctx context.Context, handle string) (bool, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return false, err
	}

	base := p.resolver.Resolve(handle)
	resp, err := p.client.Get(ctx, xrpc.Query(base, xrpc.NSIDResolveHandle, url.Values{"handle": {handle}}))
	if err != nil {
		return false, err
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest && bytes.Contains(resp.Body, []byte(unresolvableMarker)):
		return true, nil
	case resp.OK():
		return false, domain.ErrHandleTaken.WithDetails(handle)
	default:
		return false, domain.ErrUnclassified.WithDetails(
			fmt.Sprintf("resolveHandle returned %d: %s", resp.StatusCode, strings.TrimSpace(string(resp.Body))))
	}
}

// CreateAccount registers creds on the server hosting the handle.
func (p *Provisioner) CreateAccount(ctx context.Context, creds domain.Credentials) error {
	err := p.createAccount(ctx, creds)

	result := metric.Result(err)
	if errors.Is(err, domain.ErrHandleTaken) {
		result = metric.ResultTaken
	}
	p.metrics.ObserveProvision(result)

	return err
}

func (p *Provisioner) createAccount(ctx context.Context, creds domain.Credentials) error {
	if creds.IsZero() {
		return domain.ErrInvalidCredentials
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	base := p.resolver.Resolve(creds.Handle)
	resp, err := p.client.Post(ctx, xrpc.Endpoint(base, xrpc.NSIDCreateAccount), createAccountRequest{
		Handle:   creds.Handle,
		Password: creds.Password,
		Email:    creds.Email,
	})
	if err != nil {
		return err
	}
	if resp.OK() {
		return nil
	}

	return domain.ClassifyAccountError(resp.Err().Code, string(resp.Body))
}

// CreateAutoAccount provisions an account under a generated handle.
//
// One password is generated up front. Each attempt draws a new handle,
// checks it and, if free, creates the account. A taken handle moves on to
// the next attempt; any other failure aborts. After MaxAttempts taken
// handles ErrNoHandleAvailable is returned.
func (p *Provisioner) CreateAutoAccount(ctx context.Context) (domain.Credentials, error) {
	password, err := p.GeneratePassword()
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("generate password: %w", err)
	}

	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
				return domain.Credentials{}, err
			}
		}

		handle, err := p.GenerateHandle()
		if err != nil {
			return domain.Credentials{}, err
		}
		log := p.logger.WithContext(ctx).With("handle", handle, "attempt", attempt+1)

		if _, err := p.CheckAvailability(ctx, handle); err != nil {
			if errors.Is(err, domain.ErrHandleTaken) {
				log.Info("generated handle is taken")
				continue
			}
			log.Warn("availability check failed", "error", err)
			return domain.Credentials{}, err
		}

		creds := domain.Credentials{Handle: handle, Password: password}
		if err := p.CreateAccount(ctx, creds); err != nil {
			if errors.Is(err, domain.ErrHandleTaken) {
				log.Info("handle claimed before account creation")
				continue
			}
			log.Warn("account creation failed", "error", err)
			return domain.Credentials{}, err
		}

		log.Info("account created")
		return creds, nil
	}

	return domain.Credentials{}, domain.ErrNoHandleAvailable
}

// CreateCustomAccount provisions an account for a user-chosen label.
func (p *Provisioner) CreateCustomAccount(ctx context.Context, label, email string) (domain.Credentials, error) {
	if !domain.IsValidHandleLabel(label) {
		return domain.Credentials{}, domain.ErrInvalidHandle.WithDetails(
			fmt.Sprintf("label must be 1-%d letters, digits, spaces, '-' or '_'", domain.MaxHandleLabelLength))
	}

	password, err := p.GeneratePassword()
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("generate password: %w", err)
	}

	creds := domain.Credentials{
		Handle:   domain.CustomHandle(label, p.cfg.HandleDomain),
		Password: password,
		Email:    strings.TrimSpace(email),
	}

	if _, err := p.CheckAvailability(ctx, creds.Handle); err != nil {
		return domain.Credentials{}, err
	}
	if err := p.CreateAccount(ctx, creds); err != nil {
		return domain.Credentials{}, err
	}

	p.logger.WithContext(ctx).Info("custom account created", "handle", creds.Handle)
	return creds, nil
}

// backoff returns a full-jitter wait for the given attempt (1-based):
// uniform in [0, min(base*2^(attempt-1), max)].
func (p *Provisioner) backoff(attempt int) time.Duration {
	base := p.cfg.BackoffBase
	if base <= 0 {
		return 0
	}

	d := p.cfg.BackoffMax
	if shift := attempt - 1; shift < 32 {
		if exp := base << shift; exp > 0 && exp < d {
			d = exp
		}
	}
	return time.Duration(p.jitter(int64(d) + 1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
