package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/xrpc"
	"github.com/yndnr/resonance-go/pkg/crypto/adaptive"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := adaptive.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Output != "table" {
		t.Errorf("Output = %q, want table", cfg.Output)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.HasCredentials() {
		t.Error("default config should hold no credentials")
	}
}

func TestDefaultPaths(t *testing.T) {
	if !strings.HasSuffix(DefaultConfigPath(), filepath.Join(".resonance", "cli.yaml")) {
		t.Errorf("DefaultConfigPath() = %q", DefaultConfigPath())
	}
	if got := KeyPathFor("/tmp/x/cli.yaml"); got != filepath.Join("/tmp/x", "key") {
		t.Errorf("KeyPathFor() = %q", got)
	}
	if KeyPathFor("") != DefaultKeyPath() {
		t.Error("empty path should use the default key path")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output != "table" {
		t.Error("missing file should yield defaults")
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("output: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "cli.yaml")
	key := testKey(t)

	cfg := Default()
	cfg.Output = "json"
	cfg.UseAutoAccount = true
	cfg.Timeout = 5 * time.Second
	cfg.Routes = []xrpc.Route{{Suffix: ".example.test", BaseURL: "https://pds.example.test"}}
	if err := cfg.SetCredentials(key, domain.Credentials{Handle: "alice.bsky.social", Password: "hunter2"}); err != nil {
		t.Fatalf("SetCredentials() error = %v", err)
	}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}

	raw, _ := os.ReadFile(path)
	if strings.Contains(string(raw), "hunter2") {
		t.Fatal("password written in plaintext")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Output != "json" || !loaded.UseAutoAccount || loaded.Timeout != 5*time.Second {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Routes) != 1 || loaded.Resolver().Resolve("bob.example.test") != "https://pds.example.test" {
		t.Errorf("routes = %+v", loaded.Routes)
	}

	creds, err := loaded.Credentials(key)
	if err != nil {
		t.Fatalf("Credentials() error = %v", err)
	}
	if creds.Handle != "alice.bsky.social" || creds.Password != "hunter2" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestCredentials_BoundToHandle(t *testing.T) {
	key := testKey(t)
	cfg := Default()
	if err := cfg.SetCredentials(key, domain.Credentials{Handle: "alice.bsky.social", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	cfg.Handle = "mallory.bsky.social"
	if _, err := cfg.Credentials(key); err == nil {
		t.Error("sealed password should not open under another handle")
	}
}

func TestCredentials_Missing(t *testing.T) {
	cfg := Default()
	if _, err := cfg.Credentials(testKey(t)); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("error = %v", err)
	}
	if err := cfg.SetCredentials(testKey(t), domain.Credentials{}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("SetCredentials(empty) error = %v", err)
	}

	cfg.Handle, cfg.SealedPassword = "a", "b"
	cfg.ClearCredentials()
	if cfg.HasCredentials() {
		t.Error("ClearCredentials() left data behind")
	}
}

func TestDefaultResolver(t *testing.T) {
	r := Default().Resolver()
	if got := r.Resolve("x.sync.terasync.app"); got != xrpc.SelfHostedBaseURL {
		t.Errorf("Resolve() = %q", got)
	}
	if got := r.Resolve("someone.example.com"); got != xrpc.DefaultBaseURL {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestMerge(t *testing.T) {
	cfg := Default()
	cfg.Handle = "alice.bsky.social"
	cfg.SealedPassword = "sealed"

	env := map[string]string{
		"RESONANCE_OUTPUT": "yaml",
		"RESONANCE_SOCKET": "/run/env.sock",
	}
	flags := map[string]string{
		"output": "json",
	}

	got := Merge(cfg, env, flags)
	if got.Output != "json" {
		t.Errorf("Output = %q, flags should win", got.Output)
	}
	if got.SocketPath != "/run/env.sock" {
		t.Errorf("SocketPath = %q", got.SocketPath)
	}
	if got.SealedPassword != "sealed" {
		t.Error("same handle should keep the stored password")
	}

	Merge(cfg, nil, map[string]string{"handle": "bob.bsky.social"})
	if cfg.Handle != "bob.bsky.social" || cfg.SealedPassword != "" {
		t.Errorf("handle override = %q / %q", cfg.Handle, cfg.SealedPassword)
	}
}
