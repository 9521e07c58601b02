package command

import (
	"strings"
	"testing"

	"github.com/yndnr/resonance-go/internal/core/domain"
)

func TestAccountAuto(t *testing.T) {
	env := newCLIEnv(t)

	var res AccountResult
	env.mustRun(&res, "account", "auto")
	if !res.Stored || res.Password != "" {
		t.Errorf("result = %+v", res)
	}
	if !env.pds.hasAccount(res.Handle) {
		t.Errorf("account %q not created", res.Handle)
	}
	if env.loadConfig().Handle != res.Handle {
		t.Error("account not stored")
	}
}

func TestAccountCustom_NoStore(t *testing.T) {
	env := newCLIEnv(t)

	var res AccountResult
	env.mustRun(&res, "account", "custom", "--no-store", "--email", "me@example.com", "My", "Char")
	if res.Handle != "my-char."+domain.DefaultHandleDomain {
		t.Errorf("Handle = %q", res.Handle)
	}
	if res.Stored || len(res.Password) == 0 {
		t.Errorf("result = %+v", res)
	}
	if env.loadConfig().HasCredentials() {
		t.Error("--no-store still stored the account")
	}

	// The printed password signs in.
	var login LoginResult
	env.mustRun(&login, "login", "-u", res.Handle, "-p", res.Password)
	if login.Handle != res.Handle {
		t.Errorf("login handle = %q", login.Handle)
	}
}

func TestAccountCustom_Taken(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(nil, "account", "custom", "Taken")

	res := env.run("", "account", "custom", "Taken")
	if res.err == nil {
		t.Fatal("expected an error for a taken handle")
	}
}

func TestAccountCustom_InvalidLabel(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run("", "account", "custom", "Tom & Jerry")
	if res.err == nil {
		t.Fatal("expected an error for an invalid label")
	}
}

func TestAccountCheck(t *testing.T) {
	env := newCLIEnv(t)

	var taken AvailabilityResult
	env.mustRun(&taken, "account", "check", "alice.test")
	if taken.Available {
		t.Error("alice.test should be taken")
	}
	if taken.Endpoint != env.pds.URL {
		t.Errorf("Endpoint = %q", taken.Endpoint)
	}

	var free AvailabilityResult
	env.mustRun(&free, "account", "check", "nobody.test")
	if !free.Available {
		t.Error("nobody.test should be available")
	}

	if res := env.run("", "account", "check"); res.err == nil {
		t.Error("expected an error without a handle")
	}
}

func TestAccountValidate(t *testing.T) {
	env := newCLIEnv(t)

	var ok ValidationResult
	env.mustRun(&ok, "account", "validate", "My Character_1")
	if !ok.Valid || ok.Handle != "my-character_1."+domain.DefaultHandleDomain {
		t.Errorf("result = %+v", ok)
	}

	res := env.run("", "account", "validate", strings.Repeat("a", 31))
	if res.err == nil {
		t.Fatal("expected a non-zero exit for an invalid label")
	}
	if !strings.Contains(res.out, `"valid": false`) {
		t.Errorf("output = %s", res.out)
	}
}
