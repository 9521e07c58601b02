package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	Account struct {
		Handle         string `koanf:"handle"`
		UseAutoAccount bool   `koanf:"use_auto_account"`
	} `koanf:"account"`
	Provision struct {
		MaxAttempts int           `koanf:"max_attempts"`
		BackoffBase time.Duration `koanf:"backoff_base"`
	} `koanf:"provision"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
account:
  handle: alice.bsky.social
  use_auto_account: true
provision:
  max_attempts: 3
  backoff_base: 250ms
`)

	var cfg sampleConfig
	if err := Load(&cfg, Sources{File: path, EnvPrefix: "-"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Account.Handle != "alice.bsky.social" || !cfg.Account.UseAutoAccount {
		t.Errorf("account = %+v", cfg.Account)
	}
	if cfg.Provision.MaxAttempts != 3 || cfg.Provision.BackoffBase != 250*time.Millisecond {
		t.Errorf("provision = %+v", cfg.Provision)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg sampleConfig
	if err := Load(&cfg, Sources{File: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoad_EnvSectionSeparator(t *testing.T) {
	t.Setenv("RESONANCE_ACCOUNT__USE_AUTO_ACCOUNT", "true")
	t.Setenv("RESONANCE_PROVISION__MAX_ATTEMPTS", "7")

	var cfg sampleConfig
	if err := Load(&cfg, Sources{}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Account.UseAutoAccount || cfg.Provision.MaxAttempts != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_CustomAndDisabledEnv(t *testing.T) {
	t.Setenv("RESONANCE_ACCOUNT__HANDLE", "default-prefix.test")
	t.Setenv("ALT_ACCOUNT__HANDLE", "alt-prefix.test")

	var cfg sampleConfig
	if err := Load(&cfg, Sources{EnvPrefix: "ALT_"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Account.Handle != "alt-prefix.test" {
		t.Errorf("handle = %q", cfg.Account.Handle)
	}

	cfg = sampleConfig{}
	if err := Load(&cfg, Sources{EnvPrefix: "-"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Account.Handle != "" {
		t.Errorf("environment should be ignored, got %q", cfg.Account.Handle)
	}
}

func TestLoad_Priority(t *testing.T) {
	path := writeConfig(t, `
account:
  handle: from-file.bsky.social
provision:
  max_attempts: 3
`)
	t.Setenv("RESONANCE_ACCOUNT__HANDLE", "from-env.bsky.social")

	var cfg sampleConfig
	err := Load(&cfg, Sources{
		File:      path,
		Overrides: map[string]any{"provision.max_attempts": 9},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Account.Handle != "from-env.bsky.social" {
		t.Errorf("handle = %q, env should override file", cfg.Account.Handle)
	}
	if cfg.Provision.MaxAttempts != 9 {
		t.Errorf("max_attempts = %d, overrides should win", cfg.Provision.MaxAttempts)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "account:\n  handle: alice.bsky.social\n")

	var cfg sampleConfig
	cfg.Provision.MaxAttempts = 5
	if err := Load(&cfg, Sources{File: path, EnvPrefix: "-"}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provision.MaxAttempts != 5 {
		t.Errorf("default overwritten: max_attempts = %d", cfg.Provision.MaxAttempts)
	}
}

func TestOverrides_Unflatten(t *testing.T) {
	got, err := overrides{"account.handle": "alice.test"}.Read()
	if err != nil {
		t.Fatal(err)
	}
	account, ok := got["account"].(map[string]any)
	if !ok || account["handle"] != "alice.test" {
		t.Errorf("Read() = %v", got)
	}
	if _, err := (overrides{}).ReadBytes(); err == nil {
		t.Error("ReadBytes() should fail")
	}
}
