package command

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	agentconfig "github.com/yndnr/resonance-go/internal/agent/config"
	"github.com/yndnr/resonance-go/internal/cli/output"
	"github.com/yndnr/resonance-go/internal/infra/tlsroots"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:  "cli",
				Usage: "CLI local configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Show CLI configuration",
						Action: configCLIShow,
					},
					{
						Name:      "set",
						Usage:     "Set a CLI configuration value",
						ArgsUsage: "KEY VALUE",
						Description: "Keys: output, socket_path, timeout, use_auto_account, default_base_url, ca_file.\n" +
							"Use 'login' to change the stored account.",
						Action: configCLISet,
					},
					{
						Name:   "path",
						Usage:  "Print the CLI configuration file path",
						Action: configCLIPath,
					},
				},
			},
			{
				Name:  "agent",
				Usage: "resonance-agent configuration",
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show the effective agent configuration",
						ArgsUsage: "[FILE]",
						Action:    configAgentShow,
					},
					{
						Name:      "test",
						Usage:     "Validate an agent configuration file",
						ArgsUsage: "FILE",
						Action:    configAgentTest,
					},
				},
			},
		},
	}
}

// cliConfigView is what config cli show prints; the sealed password is
// reduced to a flag.
type cliConfigView struct {
	Path           string      `json:"path"`
	Handle         string      `json:"handle"`
	PasswordStored bool        `json:"password_stored"`
	UseAutoAccount bool        `json:"use_auto_account"`
	Output         string      `json:"output"`
	SocketPath     string      `json:"socket_path"`
	Timeout        string      `json:"timeout"`
	DefaultBaseURL string      `json:"default_base_url"`
	CAFile         string      `json:"ca_file,omitempty"`
	Routes         []routeView `json:"routes"`
}

type routeView struct {
	Suffix  string `json:"suffix"`
	BaseURL string `json:"base_url"`
}

func configCLIShow(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	cfg := rt.Config
	resolver := cfg.Resolver()
	view := cliConfigView{
		Path:           rt.ConfigPath,
		Handle:         cfg.Handle,
		PasswordStored: cfg.SealedPassword != "",
		UseAutoAccount: cfg.UseAutoAccount,
		Output:         string(rt.Format),
		SocketPath:     rt.SocketPath(),
		Timeout:        rt.Timeout.String(),
		DefaultBaseURL: resolver.Fallback(),
		CAFile:         cfg.CAFile,
	}
	for _, r := range resolver.Routes() {
		view.Routes = append(view.Routes, routeView{Suffix: r.Suffix, BaseURL: r.BaseURL})
	}
	return rt.Print(view)
}

func configCLISet(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	if c.NArg() != 2 {
		return errors.New("usage: config cli set KEY VALUE")
	}

	key, value := c.Args().Get(0), c.Args().Get(1)
	cfg := rt.Config
	switch key {
	case "output":
		f, err := output.ParseFormat(value)
		if err != nil {
			return err
		}
		cfg.Output = string(f)
	case "socket_path":
		cfg.SocketPath = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("timeout must be a positive duration, got %q", value)
		}
		cfg.Timeout = d
	case "use_auto_account":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("use_auto_account must be true or false, got %q", value)
		}
		cfg.UseAutoAccount = b
	case "default_base_url":
		cfg.DefaultBaseURL = value
	case "ca_file":
		if value != "" {
			if _, err := tlsroots.HTTPClient(value); err != nil {
				return err
			}
		}
		cfg.CAFile = value
	default:
		return fmt.Errorf("unknown key %q", key)
	}

	if err := rt.Save(); err != nil {
		return err
	}
	fmt.Fprintf(rt.ErrOut, "Set %s\n", key)
	return nil
}

func configCLIPath(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}
	fmt.Fprintln(rt.Out, rt.ConfigPath)
	return nil
}

func configAgentShow(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	cfg, err := agentconfig.Load(c.Args().First(), nil)
	if err != nil {
		return err
	}
	sanitized := agentconfig.Sanitize(cfg)
	if rt.Format == output.FormatJSON {
		return rt.Print(sanitized)
	}
	// The agent file is YAML, so show it with its own keys.
	enc := yaml.NewEncoder(rt.Out)
	enc.SetIndent(2)
	if err := enc.Encode(sanitized); err != nil {
		return err
	}
	return enc.Close()
}

func configAgentTest(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		return errors.New("a configuration FILE is required")
	}
	if _, err := agentconfig.Load(path, nil); err != nil {
		return err
	}
	fmt.Fprintf(rt.Out, "✓ Configuration file is valid: %s\n", path)
	return nil
}
