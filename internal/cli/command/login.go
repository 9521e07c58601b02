package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/resonance-go/internal/cli/config"
	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/core/service"
)

// LoginResult is printed by login.
type LoginResult struct {
	Handle      string `json:"handle"`
	DID         string `json:"did"`
	Endpoint    string `json:"endpoint"`
	Provisioned bool   `json:"provisioned"`
}

// StatusResult is printed by status.
type StatusResult struct {
	Handle            string `json:"handle"`
	CredentialsStored bool   `json:"credentials_stored"`
	Endpoint          string `json:"endpoint"`
	UseAutoAccount    bool   `json:"use_auto_account"`
	Verified          *bool  `json:"verified,omitempty"`
	DID               string `json:"did,omitempty"`
	Config            string `json:"config" table:"wide"`
}

// LoginCommand returns the login command.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and store the account for later commands",
		Description: "Without --handle the stored account is used. With --auto, or when no\n" +
			"account is stored and use_auto_account is set, a new account is provisioned.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "handle",
				Aliases: []string{"u"},
				Usage:   "Account handle (e.g. alice.bsky.social)",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Account password",
				EnvVars: []string{"RESONANCE_PASSWORD"},
			},
			&cli.BoolFlag{
				Name:  "password-stdin",
				Usage: "Read the password from the first line of stdin",
			},
			&cli.BoolFlag{
				Name:  "auto",
				Usage: "Provision a new account with a generated handle",
			},
		},
		Action: loginAction,
	}
}

func loginAction(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	creds, provisioned, err := loginCredentials(c, rt)
	if err != nil {
		return err
	}

	core := rt.Core(service.DefaultConfig())
	if provisioned {
		spin := rt.Spinner("Provisioning a new account")
		creds, err = core.Provisioner.CreateAutoAccount(c.Context)
		if err != nil {
			spin.Fail(domain.UserMessage(err))
			return err
		}
		spin.Success("Created " + creds.Handle)
		// Store before signing in so a failed sign-in does not lose the account.
		if err := rt.StoreCredentials(creds); err != nil {
			return err
		}
	}

	spin := rt.Spinner("Signing in as " + creds.Handle)
	if err := core.Sessions.Authenticate(c.Context, creds.Handle, creds.Password); err != nil {
		spin.Fail(domain.UserMessage(err))
		return err
	}
	spin.Stop()

	if !provisioned {
		if err := rt.StoreCredentials(creds); err != nil {
			return err
		}
	}

	sess := core.Sessions.Snapshot()
	return rt.Print(LoginResult{
		Handle:      sess.Handle,
		DID:         sess.DID,
		Endpoint:    sess.Endpoint,
		Provisioned: provisioned,
	})
}

// loginCredentials decides which account login uses. provisioned is true
// when a new account has to be created first.
func loginCredentials(c *cli.Context, rt *Runtime) (creds domain.Credentials, provisioned bool, err error) {
	if c.Bool("auto") {
		return domain.Credentials{}, true, nil
	}

	handle := strings.TrimSpace(c.String("handle"))
	password := c.String("password")
	if c.Bool("password-stdin") {
		if password, err = readPassword(c.App.Reader); err != nil {
			return domain.Credentials{}, false, err
		}
	}

	if handle == "" {
		stored, err := rt.StoredCredentials()
		switch {
		case err == nil:
			if password != "" {
				stored.Password = password
			}
			return stored, false, nil
		case errors.Is(err, config.ErrNoCredentials) && rt.Config.UseAutoAccount:
			return domain.Credentials{}, true, nil
		default:
			return domain.Credentials{}, false, err
		}
	}

	if password == "" {
		if stored, err := rt.StoredCredentials(); err == nil && strings.EqualFold(stored.Handle, handle) {
			password = stored.Password
		}
	}
	if password == "" {
		return domain.Credentials{}, false, errors.New("a password is required: use --password, --password-stdin or RESONANCE_PASSWORD")
	}
	return domain.Credentials{Handle: handle, Password: password}, false, nil
}

func readPassword(r io.Reader) (string, error) {
	if r == nil {
		r = os.Stdin
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}

// LogoutCommand returns the logout command.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored account",
		Action: func(c *cli.Context) error {
			rt, err := GetRuntime(c)
			if err != nil {
				return err
			}
			if !rt.Config.HasCredentials() {
				fmt.Fprintln(rt.ErrOut, "No stored account")
				return nil
			}

			handle := rt.Config.Handle
			rt.Config.ClearCredentials()
			if err := rt.Save(); err != nil {
				return err
			}
			fmt.Fprintf(rt.ErrOut, "Forgot %s\n", handle)
			return nil
		},
	}
}

// StatusCommand returns the status command.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the stored account",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Sign in to verify the stored credentials",
			},
		},
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	cfg := rt.Config
	res := StatusResult{
		Handle:            cfg.Handle,
		CredentialsStored: cfg.HasCredentials(),
		UseAutoAccount:    cfg.UseAutoAccount,
		Config:            rt.ConfigPath,
	}
	if cfg.Handle != "" {
		res.Endpoint = cfg.Resolver().Resolve(cfg.Handle)
	}

	if c.Bool("check") && res.CredentialsStored {
		core, err := rt.Authenticated(c.Context, service.DefaultConfig())
		verified := err == nil
		res.Verified = &verified
		if err != nil {
			rt.Logger.Debug("stored credentials rejected", "error", err)
		} else {
			res.DID = core.Sessions.Snapshot().DID
		}
	}

	return rt.Print(res)
}
