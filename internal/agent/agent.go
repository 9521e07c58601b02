package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/yndnr/resonance-go/internal/agent/config"
	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/core/service"
	"github.com/yndnr/resonance-go/internal/gateway"
	"github.com/yndnr/resonance-go/internal/infra/buildinfo"
	"github.com/yndnr/resonance-go/internal/infra/confloader"
	"github.com/yndnr/resonance-go/internal/infra/tlsroots"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/telemetry/metric"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// ErrNoAccount is returned by SignIn when no account is configured, none
// is stored and auto provisioning is off.
var ErrNoAccount = errors.New("no account configured")

// Agent is a running resonance-agent.
type Agent struct {
	path    string
	core    *service.Core
	logger  logger.Logger
	metrics *metric.Registry
	prom    *prometheus.Registry

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards cfg and creds. Reloads replace cfg rather than mutate it.
	mu    sync.Mutex
	cfg   *config.AgentConfig
	creds domain.Credentials

	gateway     *gateway.Server
	metricsSrv  *http.Server
	metricsAddr net.Addr
	watcher     *confloader.Watcher
}

// New builds an agent from cfg. path is the file cfg was loaded from and
// may be empty.
func New(cfg *config.AgentConfig, path string, l logger.Logger) (*Agent, error) {
	log := logger.OrDefault(l)

	hc, err := tlsroots.HTTPClient(cfg.Network.CAFile)
	if err != nil {
		return nil, err
	}

	var prom *prometheus.Registry
	var metrics *metric.Registry
	if cfg.Metrics.Enabled {
		prom = prometheus.NewRegistry()
		prom.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = metric.NewRegistry(prom)
	}

	userAgent := cfg.Network.UserAgent
	if userAgent == "" {
		userAgent = buildinfo.UserAgent()
	}
	var opts []xrpc.Option
	if hc != nil {
		opts = append(opts, xrpc.WithHTTPClient(hc))
	}
	client := xrpc.NewClient(append(opts,
		xrpc.WithTimeout(cfg.Network.Timeout),
		xrpc.WithUserAgent(userAgent),
		xrpc.WithMaxRedirects(cfg.Network.MaxRedirects),
		xrpc.WithLogger(log),
		xrpc.WithMetrics(metrics),
	)...)
	resolver := xrpc.NewResolver(cfg.Network.EffectiveRoutes(), cfg.Network.DefaultBaseURL)
	core := service.NewCore(client, resolver, service.Config{
		Publish:   cfg.Publish,
		Provision: cfg.Provision,
	}, service.WithLogger(log), service.WithMetrics(metrics))

	if prom != nil {
		prom.MustRegister(metric.NewSessionCollector(func() metric.SessionState {
			s := core.Sessions.Snapshot()
			return metric.SessionState{
				Authenticated:   s.IsAuthenticated(),
				AccessExpiresAt: s.AccessExpiresAt,
			}
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{
		path:    path,
		cfg:     cfg,
		core:    core,
		logger:  log,
		metrics: metrics,
		prom:    prom,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Core returns the agent's core.
func (a *Agent) Core() *service.Core {
	return a.core
}

// MetricsAddr returns the bound metrics address, or nil when metrics are
// not served.
func (a *Agent) MetricsAddr() net.Addr {
	return a.metricsAddr
}

// Start signs in and starts the gateway, metrics endpoint and file
// watcher. A failed sign-in is logged, not returned: gateway clients can
// still authenticate explicitly.
func (a *Agent) Start(ctx context.Context) error {
	if err := a.SignIn(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Warn("initial sign-in failed", "error", err)
	}

	cfg := a.config()

	if cfg.Gateway.Enabled {
		handler := gateway.NewHandler(a.core, gateway.HandlerConfig{
			PublishRate:  cfg.Gateway.PublishRate,
			PublishBurst: cfg.Gateway.PublishBurst,
		}, a.logger, a.metrics)
		srv := gateway.NewServer(cfg.Gateway.SocketPath, handler,
			gateway.WithMaxConnections(cfg.Gateway.MaxConnections),
			gateway.WithServerLogger(a.logger))
		if err := srv.Listen(); err != nil {
			return fmt.Errorf("start gateway: %w", err)
		}
		a.gateway = srv
		go func() {
			if err := srv.Serve(); err != nil {
				a.logger.Error("gateway stopped", "error", err)
			}
		}()
	}

	if a.prom != nil {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("start metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metric.Handler(a.prom))
		a.metricsSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		a.metricsAddr = ln.Addr()
		go func() {
			if err := a.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
		a.logger.Info("metrics listening", "addr", ln.Addr().String())
	}

	return a.watch(cfg)
}

func (a *Agent) watch(cfg *config.AgentConfig) error {
	var files []string
	if a.path != "" {
		files = append(files, a.path)
	}
	if f := cfg.Account.CredentialsFile; f != "" {
		// The file may not exist yet but its directory has to.
		if err := os.MkdirAll(filepath.Dir(f), 0o700); err != nil {
			return fmt.Errorf("create credentials directory: %w", err)
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil
	}

	w, err := confloader.NewWatcher(a.reload, confloader.WithWatcherLogger(a.logger))
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := w.Add(files...); err != nil {
		_ = w.Stop()
		return fmt.Errorf("watch %v: %w", files, err)
	}
	w.Start()
	a.watcher = w
	return nil
}

// SignIn picks an account and authenticates with it.
func (a *Agent) SignIn(ctx context.Context) error {
	creds, err := a.credentials(ctx, true)
	if err != nil {
		return err
	}
	return a.authenticate(ctx, creds)
}

func (a *Agent) authenticate(ctx context.Context, creds domain.Credentials) error {
	if err := a.core.Sessions.Authenticate(ctx, creds.Handle, creds.Password); err != nil {
		return err
	}
	a.mu.Lock()
	a.creds = creds
	a.mu.Unlock()
	return nil
}

// credentials returns the configured account, then the stored one, then,
// if provision is set and auto accounts are enabled, a new one which is
// persisted to the credentials file.
func (a *Agent) credentials(ctx context.Context, provision bool) (domain.Credentials, error) {
	acct := a.config().Account

	if acct.Handle != "" {
		return domain.Credentials{Handle: acct.Handle, Password: acct.Password}, nil
	}

	if acct.CredentialsFile != "" {
		creds, err := config.LoadCredentials(acct.CredentialsFile)
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, config.ErrNoStoredCredentials) {
			return domain.Credentials{}, err
		}
	}

	if !provision || !acct.UseAutoAccount {
		return domain.Credentials{}, ErrNoAccount
	}

	creds, err := a.core.Provisioner.CreateAutoAccount(ctx)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("provision account: %w", err)
	}
	if err := config.SaveCredentials(acct.CredentialsFile, creds, time.Now().UTC().Format(time.RFC3339)); err != nil {
		// The account exists but will be lost on restart.
		a.logger.Error("failed to persist provisioned account", "handle", creds.Handle, "error", err)
	}
	return creds, nil
}

// reload re-reads changed files and signs in again when the account they
// now describe differs from the current one.
func (a *Agent) reload(path string) {
	log := a.logger.With("file", path)

	if a.path != "" && sameFile(path, a.path) {
		cfg, err := config.Load(a.path, nil)
		if err != nil {
			log.Warn("ignoring invalid configuration", "error", err)
			return
		}
		a.mu.Lock()
		next := *a.cfg
		next.Account = cfg.Account
		next.Log.Level = cfg.Log.Level
		a.cfg = &next
		a.mu.Unlock()

		if before := logger.Level(); !strings.EqualFold(before, cfg.Log.Level) {
			if err := logger.SetLevel(cfg.Log.Level); err == nil {
				log.Info("log level changed", "from", before, "to", logger.Level())
			}
		}
	}

	ctx, cancel := context.WithTimeout(a.ctx, a.config().Network.Timeout)
	defer cancel()

	creds, err := a.credentials(ctx, false)
	if err != nil {
		log.Debug("no account after reload", "error", err)
		return
	}

	a.mu.Lock()
	unchanged := creds == a.creds
	a.mu.Unlock()
	if unchanged && a.core.Sessions.IsAuthenticated() {
		return
	}

	if err := a.authenticate(ctx, creds); err != nil {
		log.Warn("re-authentication failed", "handle", creds.Handle, "error", err)
		return
	}
	log.Info("re-authenticated after change", "handle", creds.Handle)
}

func (a *Agent) config() *config.AgentConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

// Shutdown stops the watcher, the gateway and the metrics endpoint.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.cancel()

	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Stop())
	}
	if a.gateway != nil {
		errs = append(errs, a.gateway.Shutdown(ctx))
	}
	if a.metricsSrv != nil {
		errs = append(errs, a.metricsSrv.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
