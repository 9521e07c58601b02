package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/core/service"
)

// AccountResult is printed after an account is created.
type AccountResult struct {
	Handle string `json:"handle"`
	// Password is only shown when the account is not stored.
	Password string `json:"password,omitempty"`
	Stored   bool   `json:"stored"`
}

// AvailabilityResult is printed by account check.
type AvailabilityResult struct {
	Handle    string `json:"handle"`
	Available bool   `json:"available"`
	Endpoint  string `json:"endpoint" table:"wide"`
}

// ValidationResult is printed by account validate.
type ValidationResult struct {
	Label  string `json:"label"`
	Valid  bool   `json:"valid"`
	Handle string `json:"handle,omitempty"`
}

// AccountCommand returns the account subcommand group.
func AccountCommand() *cli.Command {
	noStore := &cli.BoolFlag{
		Name:  "no-store",
		Usage: "Print the new credentials instead of storing them",
	}

	return &cli.Command{
		Name:    "account",
		Aliases: []string{"acct"},
		Usage:   "Create accounts and check handles",
		Subcommands: []*cli.Command{
			{
				Name:   "auto",
				Usage:  "Create an account with a generated handle",
				Flags:  []cli.Flag{noStore},
				Action: accountAuto,
			},
			{
				Name:      "custom",
				Usage:     "Create an account from a chosen label",
				ArgsUsage: "LABEL",
				Flags: []cli.Flag{
					noStore,
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "Contact e-mail for the account",
					},
				},
				Action: accountCustom,
			},
			{
				Name:      "check",
				Usage:     "Check whether a handle is still free",
				ArgsUsage: "HANDLE",
				Action:    accountCheck,
			},
			{
				Name:      "validate",
				Usage:     "Check a label locally without contacting a server",
				ArgsUsage: "LABEL",
				Action:    accountValidate,
			},
		},
	}
}

func accountAuto(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	core := rt.Core(service.DefaultConfig())
	spin := rt.Spinner("Provisioning a new account")
	creds, err := core.Provisioner.CreateAutoAccount(c.Context)
	if err != nil {
		spin.Fail(domain.UserMessage(err))
		return err
	}
	spin.Success("Created " + creds.Handle)

	return finishAccount(c, rt, creds)
}

func accountCustom(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	label := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(label) == "" {
		return errors.New("a label is required")
	}

	core := rt.Core(service.DefaultConfig())
	spin := rt.Spinner("Creating account for " + label)
	creds, err := core.Provisioner.CreateCustomAccount(c.Context, label, c.String("email"))
	if err != nil {
		spin.Fail(domain.UserMessage(err))
		return err
	}
	spin.Success("Created " + creds.Handle)

	return finishAccount(c, rt, creds)
}

func finishAccount(c *cli.Context, rt *Runtime, creds domain.Credentials) error {
	res := AccountResult{Handle: creds.Handle}
	if c.Bool("no-store") {
		res.Password = creds.Password
	} else {
		if err := rt.StoreCredentials(creds); err != nil {
			return fmt.Errorf("account %s was created but could not be stored: %w", creds.Handle, err)
		}
		res.Stored = true
	}
	return rt.Print(res)
}

func accountCheck(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	handle := strings.TrimSpace(c.Args().First())
	if handle == "" {
		return errors.New("a handle is required")
	}

	core := rt.Core(service.DefaultConfig())
	available, err := core.Provisioner.CheckAvailability(c.Context, handle)
	if err != nil && !errors.Is(err, domain.ErrHandleTaken) {
		return err
	}

	return rt.Print(AvailabilityResult{
		Handle:    handle,
		Available: available,
		Endpoint:  rt.Config.Resolver().Resolve(handle),
	})
}

func accountValidate(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	label := strings.Join(c.Args().Slice(), " ")
	res := ValidationResult{Label: label, Valid: domain.IsValidHandleLabel(label)}
	if res.Valid {
		res.Handle = domain.CustomHandle(label, service.DefaultProvisionConfig().HandleDomain)
	}

	if err := rt.Print(res); err != nil {
		return err
	}
	if !res.Valid {
		return cli.Exit("", 1)
	}
	return nil
}
