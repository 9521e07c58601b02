// Package output renders resonance-cli results as a table, JSON or YAML,
// and draws the spinner and progress bar shown on a terminal.
package output
