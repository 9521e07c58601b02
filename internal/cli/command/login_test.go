package command

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/yndnr/resonance-go/internal/cli/config"
	"github.com/yndnr/resonance-go/internal/core/domain"
)

func TestLogin_StoresSealedCredentials(t *testing.T) {
	env := newCLIEnv(t)

	var res LoginResult
	env.mustRun(&res, "login", "--handle", "alice.test", "--password", "hunter2")
	if res.Handle != "alice.test" || res.DID != "did:plc:alice.test" {
		t.Errorf("result = %+v", res)
	}
	if res.Endpoint != env.pds.URL || res.Provisioned {
		t.Errorf("result = %+v", res)
	}

	raw, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "hunter2") {
		t.Error("password stored in clear text")
	}
	if _, err := os.Stat(config.KeyPathFor(env.configPath)); err != nil {
		t.Errorf("key file not created: %v", err)
	}

	cfg := env.loadConfig()
	if cfg.Handle != "alice.test" || !cfg.HasCredentials() {
		t.Errorf("stored config = %+v", cfg)
	}
}

func TestLogin_PasswordStdin(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run("hunter2\n", "login", "-u", "alice.test", "--password-stdin")
	if res.err != nil {
		t.Fatalf("login: %v", res.err)
	}
	if !env.loadConfig().HasCredentials() {
		t.Error("credentials not stored")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run("", "login", "-u", "alice.test", "-p", "wrong")
	if !errors.Is(res.err, domain.ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", res.err)
	}
	if env.loadConfig().HasCredentials() {
		t.Error("rejected credentials were stored")
	}
}

func TestLogin_RequiresPassword(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run("", "login", "-u", "alice.test")
	if res.err == nil || !strings.Contains(res.err.Error(), "password is required") {
		t.Fatalf("err = %v", res.err)
	}
}

func TestLogin_NoStoredAccount(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run("", "login")
	if !errors.Is(res.err, config.ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", res.err)
	}
}

func TestLogin_ReusesStoredAccount(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(nil, "login", "-u", "alice.test", "-p", "hunter2")

	var res LoginResult
	env.mustRun(&res, "login")
	if res.Handle != "alice.test" {
		t.Errorf("Handle = %q", res.Handle)
	}
}

func TestLogin_Auto(t *testing.T) {
	env := newCLIEnv(t)

	var res LoginResult
	env.mustRun(&res, "login", "--auto")
	if !res.Provisioned {
		t.Error("expected Provisioned")
	}
	if !strings.HasPrefix(res.Handle, domain.DefaultHandlePrefix+"-") ||
		!strings.HasSuffix(res.Handle, "."+domain.DefaultHandleDomain) {
		t.Errorf("generated handle = %q", res.Handle)
	}
	if !env.pds.hasAccount(res.Handle) {
		t.Error("account was not created on the server")
	}
	if cfg := env.loadConfig(); cfg.Handle != res.Handle || !cfg.HasCredentials() {
		t.Errorf("stored config = %+v", cfg)
	}
}

func TestLogin_UseAutoAccountSetting(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(nil, "config", "cli", "set", "use_auto_account", "true")

	var res LoginResult
	env.mustRun(&res, "login")
	if !res.Provisioned {
		t.Error("expected an account to be provisioned")
	}
}

func TestLogout(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(nil, "login", "-u", "alice.test", "-p", "hunter2")

	res := env.run("", "logout")
	if res.err != nil {
		t.Fatalf("logout: %v", res.err)
	}
	if !strings.Contains(res.errOut, "alice.test") {
		t.Errorf("stderr = %q", res.errOut)
	}
	if cfg := env.loadConfig(); cfg.HasCredentials() || cfg.Handle != "" {
		t.Errorf("credentials not cleared: %+v", cfg)
	}

	res = env.run("", "logout")
	if res.err != nil || !strings.Contains(res.errOut, "No stored account") {
		t.Errorf("second logout: err=%v stderr=%q", res.err, res.errOut)
	}
}

func TestStatus(t *testing.T) {
	env := newCLIEnv(t)

	var st StatusResult
	env.mustRun(&st, "status")
	if st.CredentialsStored || st.Handle != "" || st.Verified != nil {
		t.Errorf("empty status = %+v", st)
	}

	env.mustRun(nil, "login", "-u", "alice.test", "-p", "hunter2")

	st = StatusResult{}
	env.mustRun(&st, "status", "--check")
	if !st.CredentialsStored || st.Handle != "alice.test" || st.Endpoint != env.pds.URL {
		t.Errorf("status = %+v", st)
	}
	if st.Verified == nil || !*st.Verified || st.DID != "did:plc:alice.test" {
		t.Errorf("check result = %+v", st)
	}
}

func TestStatus_CheckRejected(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(nil, "login", "-u", "alice.test", "-p", "hunter2")

	env.pds.mu.Lock()
	env.pds.accounts["alice.test"] = "rotated"
	env.pds.mu.Unlock()

	var st StatusResult
	env.mustRun(&st, "status", "--check")
	if st.Verified == nil || *st.Verified {
		t.Errorf("Verified = %v, want false", st.Verified)
	}
}
