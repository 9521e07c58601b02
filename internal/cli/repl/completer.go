package repl

import (
	"sort"
	"strings"
	"unicode"
)

// Completer matches command paths by prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over command paths such as
// "account auto".
func NewCompleter(commands []string) *Completer {
	sorted := append([]string(nil), commands...)
	sort.Strings(sorted)
	return &Completer{commands: sorted}
}

// Complete returns the commands starting with prefix, ignoring case and
// repeated spaces. A trailing space restricts matches to subcommands.
func (c *Completer) Complete(raw string) []string {
	prefix := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if prefix != "" && strings.TrimRightFunc(raw, unicode.IsSpace) != raw {
		prefix += " "
	}

	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
