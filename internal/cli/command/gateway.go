package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/resonance-go/internal/gateway"
)

// GatewayCommand returns the gateway subcommand group, which drives a
// running resonance-agent.
func GatewayCommand() *cli.Command {
	return &cli.Command{
		Name:    "gateway",
		Aliases: []string{"gw"},
		Usage:   "Talk to a running resonance-agent",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show the agent's session",
				Action: gatewayStatus,
			},
			{
				Name:  "auth",
				Usage: "Sign the agent in (defaults to the stored account)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "handle", Aliases: []string{"u"}, Usage: "Account handle"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", EnvVars: []string{"RESONANCE_PASSWORD"}},
				},
				Action: gatewayAuth,
			},
			{
				Name:      "publish",
				Usage:     "Publish a record through the agent",
				ArgsUsage: "FILE | -",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "async", Usage: "Return once the agent has accepted the record"},
				},
				Action: gatewayPublish,
			},
			{
				Name:   "logout",
				Usage:  "Clear the agent's session",
				Action: gatewayLogout,
			},
		},
	}
}

func gatewayClient(c *cli.Context) (*Runtime, *gateway.Client, context.Context, context.CancelFunc, error) {
	rt, err := GetRuntime(c)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(c.Context, rt.Timeout)
	return rt, gateway.NewClient(rt.SocketPath()), ctx, cancel, nil
}

func gatewayStatus(c *cli.Context) error {
	rt, client, ctx, cancel, err := gatewayClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	st, err := client.Status(ctx)
	if err != nil {
		return err
	}
	return rt.Print(st)
}

func gatewayAuth(c *cli.Context) error {
	rt, client, ctx, cancel, err := gatewayClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	handle := strings.TrimSpace(c.String("handle"))
	password := c.String("password")
	if handle == "" {
		stored, err := rt.StoredCredentials()
		if err != nil {
			return err
		}
		handle, password = stored.Handle, stored.Password
	}
	if password == "" {
		return errors.New("a password is required with --handle")
	}

	res, err := client.Authenticate(ctx, handle+":"+password)
	if err != nil {
		return err
	}
	return rt.Print(res)
}

func gatewayPublish(c *cli.Context) error {
	rt, client, ctx, cancel, err := gatewayClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	if c.NArg() != 1 {
		return errors.New("exactly one FILE, or - for stdin, is required")
	}
	record, err := readRecord(c.App.Reader, c.Args().First())
	if err != nil {
		return err
	}

	res, err := client.Publish(ctx, record, c.Bool("async"))
	if err != nil {
		return err
	}
	return rt.Print(res)
}

func gatewayLogout(c *cli.Context) error {
	rt, client, ctx, cancel, err := gatewayClient(c)
	if err != nil {
		return err
	}
	defer cancel()

	if err := client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(rt.ErrOut, "Agent session cleared")
	return nil
}
