// Package command defines the resonance-cli commands on urfave/cli/v2.
//
// Commands that talk to a PDS build a short-lived core from the stored CLI
// configuration; the gateway commands talk to a running resonance-agent
// over its Unix socket instead. Results are printed with the formatter
// chosen by --output.
package command
