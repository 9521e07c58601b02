package command

import (
	"slices"
	"strings"
	"testing"
)

func TestShell_RunsCommands(t *testing.T) {
	env := newCLIEnv(t)

	input := strings.Join([]string{
		"login -u alice.test -p hunter2",
		"account check nobody.test",
		"shell",
		"login -u alice.test -p wrong",
		"exit",
	}, "\n") + "\n"

	res := env.run(input, "shell")
	if res.err != nil {
		t.Fatalf("shell: %v\nstderr: %s", res.err, res.errOut)
	}

	if !strings.Contains(res.out, `"did": "did:plc:alice.test"`) {
		t.Errorf("login output missing:\n%s", res.out)
	}
	if !strings.Contains(res.out, `"available": true`) {
		t.Errorf("check output missing:\n%s", res.out)
	}
	if !strings.Contains(res.errOut, "already in a shell") {
		t.Errorf("nested shell not refused: %s", res.errOut)
	}
	if !strings.Contains(res.errOut, "Error: authentication failed") {
		t.Errorf("failed login not reported: %s", res.errOut)
	}
	if !env.loadConfig().HasCredentials() {
		t.Error("login inside the shell did not store the account")
	}
}

func TestCommandPaths(t *testing.T) {
	paths := commandPaths(App().Commands, "")
	for _, want := range []string{"login", "account auto", "gateway publish", "config cli set", "config agent test", "shell"} {
		if !slices.Contains(paths, want) {
			t.Errorf("missing %q in %v", want, paths)
		}
	}
}
