package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/resonance-go/internal/cli/config"
	"github.com/yndnr/resonance-go/internal/cli/output"
	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/core/service"
	"github.com/yndnr/resonance-go/internal/gateway"
	"github.com/yndnr/resonance-go/internal/infra/buildinfo"
	"github.com/yndnr/resonance-go/internal/infra/tlsroots"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/xrpc"
	"github.com/yndnr/resonance-go/pkg/crypto/adaptive"
)

const runtimeKey = "runtime"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "resonance-cli",
		Usage:                "Sign in, provision accounts and publish records on AT Protocol servers",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			LoginCommand(),
			LogoutCommand(),
			StatusCommand(),
			AccountCommand(),
			PublishCommand(),
			GatewayCommand(),
			ConfigCommand(),
			ShellCommand(),
		},
		Before: before,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI configuration file",
			EnvVars: []string{"RESONANCE_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log requests to stderr",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
		},
		&cli.StringFlag{
			Name:  "socket",
			Usage: "resonance-agent gateway socket",
		},
	}
}

// Runtime is the state shared by every command of one invocation.
type Runtime struct {
	ConfigPath string
	Config     *config.CLIConfig
	Format     output.Format
	Wide       bool
	Timeout    time.Duration
	Logger     logger.Logger

	// HTTPClient trusts the configured CA file; nil means the default.
	HTTPClient *http.Client

	Out    io.Writer
	ErrOut io.Writer
}

func before(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := make(map[string]string)
	for _, name := range []string{"output", "socket"} {
		if c.IsSet(name) {
			flags[name] = c.String(name)
		}
	}
	config.Merge(cfg, config.EnvMap(), flags)

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	timeout := cfg.Timeout
	if c.IsSet("timeout") {
		timeout = c.Duration("timeout")
	}
	if timeout <= 0 {
		timeout = xrpc.DefaultTimeout
	}

	hc, err := tlsroots.HTTPClient(cfg.CAFile)
	if err != nil {
		return err
	}

	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter})
	if err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[runtimeKey] = &Runtime{
		ConfigPath: path,
		Config:     cfg,
		Format:     format,
		Wide:       c.Bool("wide"),
		Timeout:    timeout,
		Logger:     log,
		HTTPClient: hc,
		Out:        writerOr(c.App.Writer, os.Stdout),
		ErrOut:     writerOr(c.App.ErrWriter, os.Stderr),
	}
	return nil
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}
	return w
}

// GetRuntime retrieves the runtime prepared by the app's Before hook.
func GetRuntime(c *cli.Context) (*Runtime, error) {
	if r, ok := c.App.Metadata[runtimeKey].(*Runtime); ok {
		return r, nil
	}
	return nil, errors.New("cli runtime not initialized")
}

// Print writes data in the selected output format.
func (r *Runtime) Print(data any) error {
	return output.NewFormatter(r.Format, r.Wide).Format(r.Out, data)
}

// Interactive reports whether decorations like spinners should be drawn.
func (r *Runtime) Interactive() bool {
	return r.Format == output.FormatTable
}

// Spinner starts a spinner on stderr when output is interactive.
func (r *Runtime) Spinner(message string) *output.Spinner {
	s := output.NewSpinner(r.ErrOut, message)
	if r.Interactive() {
		s.Start()
	}
	return s
}

// Core builds a core that talks directly to the servers in the config.
func (r *Runtime) Core(cfg service.Config) *service.Core {
	var opts []xrpc.Option
	if r.HTTPClient != nil {
		opts = append(opts, xrpc.WithHTTPClient(r.HTTPClient))
	}
	client := xrpc.NewClient(append(opts,
		xrpc.WithTimeout(r.Timeout),
		xrpc.WithUserAgent(buildinfo.UserAgent()),
		xrpc.WithLogger(r.Logger),
	)...)
	return service.NewCore(client, r.Config.Resolver(), cfg, service.WithLogger(r.Logger))
}

// Key returns the sealing key next to the config file, creating it once.
func (r *Runtime) Key() ([]byte, error) {
	return adaptive.LoadOrCreateKey(config.KeyPathFor(r.ConfigPath))
}

// StoredCredentials opens the stored account.
func (r *Runtime) StoredCredentials() (domain.Credentials, error) {
	if !r.Config.HasCredentials() {
		return domain.Credentials{}, config.ErrNoCredentials
	}
	key, err := r.Key()
	if err != nil {
		return domain.Credentials{}, err
	}
	return r.Config.Credentials(key)
}

// StoreCredentials seals creds into the config and saves it.
func (r *Runtime) StoreCredentials(creds domain.Credentials) error {
	key, err := r.Key()
	if err != nil {
		return err
	}
	if err := r.Config.SetCredentials(key, creds); err != nil {
		return err
	}
	return r.Save()
}

// Save writes the config back to its file.
func (r *Runtime) Save() error {
	return config.Save(r.Config, r.ConfigPath)
}

// SocketPath returns the agent socket the gateway commands dial.
func (r *Runtime) SocketPath() string {
	if r.Config.SocketPath != "" {
		return r.Config.SocketPath
	}
	return gateway.DefaultSocketPath()
}

// Authenticated signs a fresh core in with the stored account.
func (r *Runtime) Authenticated(ctx context.Context, cfg service.Config) (*service.Core, error) {
	creds, err := r.StoredCredentials()
	if err != nil {
		return nil, err
	}

	core := r.Core(cfg)
	spin := r.Spinner("Signing in as " + creds.Handle)
	if err := core.Sessions.Authenticate(ctx, creds.Handle, creds.Password); err != nil {
		spin.Fail(domain.UserMessage(err))
		return nil, err
	}
	spin.Stop()
	return core, nil
}

// ErrorMessage renders err for the terminal. Domain errors show their
// short message, with details when verbose.
func ErrorMessage(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		if verbose && de.Details != "" {
			return fmt.Sprintf("%s (%s): %s", de.Message, de.Code, de.Details)
		}
		return domain.UserMessage(err)
	}
	return err.Error()
}
