package command

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/resonance-go/internal/cli/repl"
)

// ShellCommand returns the interactive shell command.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively",
		Description: "Each line is one resonance-cli command without the program name.\n" +
			"Global flags given to shell apply to every line. Commands that read\n" +
			"stdin (--password-stdin, publish -) are not available inside the shell.",
		Action: shellAction,
	}
}

func shellAction(c *cli.Context) error {
	rt, err := GetRuntime(c)
	if err != nil {
		return err
	}

	history := repl.NewHistory(filepath.Join(filepath.Dir(rt.ConfigPath), "history"), repl.DefaultHistorySize)
	if err := history.Load(); err != nil {
		rt.Logger.Warn("could not load shell history", "error", err)
	}

	verbose := c.Bool("verbose")
	base := []string{c.App.Name, "--config", rt.ConfigPath, "-o", string(rt.Format), "--timeout", rt.Timeout.String()}
	if rt.Wide {
		base = append(base, "--wide")
	}
	if verbose {
		base = append(base, "--verbose")
	}
	if rt.Config.SocketPath != "" {
		base = append(base, "--socket", rt.Config.SocketPath)
	}

	exec := func(ctx context.Context, args []string) error {
		if args[0] == "shell" {
			return errors.New("already in a shell")
		}

		app := App()
		app.Writer = rt.Out
		app.ErrWriter = rt.ErrOut
		app.Reader = strings.NewReader("")
		app.ExitErrHandler = func(*cli.Context, error) {}

		if err := app.RunContext(ctx, append(append([]string(nil), base...), args...)); err != nil {
			return errors.New(ErrorMessage(err, verbose))
		}
		return nil
	}

	r := repl.New(exec,
		repl.WithIO(c.App.Reader, rt.Out, rt.ErrOut),
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandPaths(c.App.Commands, ""))),
	)
	return r.Run(c.Context)
}

// commandPaths lists every command and subcommand as "parent child".
func commandPaths(cmds []*cli.Command, parent string) []string {
	var paths []string
	for _, cmd := range cmds {
		if cmd.Hidden {
			continue
		}
		path := strings.TrimSpace(parent + " " + cmd.Name)
		paths = append(paths, path)
		paths = append(paths, commandPaths(cmd.Subcommands, path)...)
	}
	return paths
}
