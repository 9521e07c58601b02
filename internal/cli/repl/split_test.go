package repl

import (
	"errors"
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"status", []string{"status"}},
		{"  login   -u  alice.test ", []string{"login", "-u", "alice.test"}},
		{"account custom 'My Char'", []string{"account", "custom", "My Char"}},
		{`login -p "pa ss\"word"`, []string{"login", "-p", `pa ss"word`}},
		{`publish my\ file.json`, []string{"publish", "my file.json"}},
		{`login -p 'a\b'`, []string{"login", "-p", `a\b`}},
		{`login -p ""`, []string{"login", "-p", ""}},
		{"a\tb", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Split(tt.line)
			if err != nil {
				t.Fatalf("Split(%q) error = %v", tt.line, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestSplit_Unterminated(t *testing.T) {
	for _, line := range []string{`'open`, `"open`, `trailing\`} {
		if _, err := Split(line); !errors.Is(err, ErrUnterminatedQuote) {
			t.Errorf("Split(%q) error = %v, want ErrUnterminatedQuote", line, err)
		}
	}
}
