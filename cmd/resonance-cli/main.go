package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/yndnr/resonance-go/internal/cli/command"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.App()
	if err := app.RunContext(ctx, os.Args); err != nil {
		verbose := slices.Contains(os.Args[1:], "--verbose") || slices.Contains(os.Args[1:], "-V")
		fmt.Fprintf(os.Stderr, "error: %s\n", command.ErrorMessage(err, verbose))
		stop()
		os.Exit(1)
	}
}
