// Package repl provides the interactive mode of resonance-cli.
//
// Each line is split into words like a POSIX shell would (quotes and
// backslash escapes) and handed to an Executor. Built-ins:
//
//   - exit, quit: leave the shell
//   - help [PREFIX]: list commands, optionally those starting with PREFIX
//   - history: print previous lines
//
// History is kept in a file between sessions.
package repl
