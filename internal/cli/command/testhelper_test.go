package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/resonance-go/internal/cli/config"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// mockPDS is a minimal XRPC server holding accounts and written records.
type mockPDS struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]string // handle -> password
	records  []json.RawMessage
}

func newMockPDS(t *testing.T) *mockPDS {
	t.Helper()
	m := &mockPDS{accounts: map[string]string{"alice.test": "hunter2"}}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)
	return m
}

func (m *mockPDS) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch strings.TrimPrefix(r.URL.Path, "/xrpc/") {
	case xrpc.NSIDResolveHandle:
		handle := r.URL.Query().Get("handle")
		if _, ok := m.accounts[handle]; ok {
			jsonResponse(w, http.StatusOK, map[string]string{"did": "did:plc:" + handle})
			return
		}
		errorResponse(w, http.StatusBadRequest, "InvalidRequest", "Unable to resolve handle")

	case xrpc.NSIDCreateAccount:
		var req struct{ Handle, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if _, ok := m.accounts[req.Handle]; ok {
			errorResponse(w, http.StatusBadRequest, "HandleNotAvailable", "Handle already taken")
			return
		}
		m.accounts[req.Handle] = req.Password
		jsonResponse(w, http.StatusOK, map[string]string{"handle": req.Handle, "did": "did:plc:" + req.Handle})

	case xrpc.NSIDCreateSession:
		var req struct{ Identifier, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if pw, ok := m.accounts[req.Identifier]; !ok || pw != req.Password {
			errorResponse(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid identifier or password")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{
			"accessJwt":  "access-" + req.Identifier,
			"refreshJwt": "refresh-" + req.Identifier,
			"did":        "did:plc:" + req.Identifier,
			"handle":     req.Identifier,
		})

	case xrpc.NSIDPutRecord:
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer access-") {
			errorResponse(w, http.StatusUnauthorized, "ExpiredToken", "Token has expired")
			return
		}
		var req struct {
			Record json.RawMessage `json:"record"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		m.records = append(m.records, req.Record)
		jsonResponse(w, http.StatusOK, map[string]string{"uri": "at://x", "cid": "bafy"})

	default:
		http.NotFound(w, r)
	}
}

func (m *mockPDS) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockPDS) hasAccount(handle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[handle]
	return ok
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse writes an XRPC error envelope.
func errorResponse(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, map[string]string{"error": code, "message": message})
}

// cliEnv runs resonance-cli against a mock PDS with its own config dir.
type cliEnv struct {
	t          *testing.T
	pds        *mockPDS
	dir        string
	configPath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	pds := newMockPDS(t)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.DefaultBaseURL = pds.URL
	cfg.Routes = []xrpc.Route{
		{Suffix: ".test", BaseURL: pds.URL},
		{Suffix: ".bsky.social", BaseURL: pds.URL},
	}
	path := filepath.Join(dir, "cli.yaml")
	if err := config.Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	return &cliEnv{t: t, pds: pds, dir: dir, configPath: path}
}

type runResult struct {
	out    string
	errOut string
	err    error
}

// run executes the app with --config and -o json prepended.
func (e *cliEnv) run(stdin string, args ...string) runResult {
	e.t.Helper()

	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"resonance-cli", "--config", e.configPath, "-o", "json"}, args...)
	err := app.Run(full)
	return runResult{out: out.String(), errOut: errOut.String(), err: err}
}

// mustRun runs and fails the test on error, decoding JSON output into v.
func (e *cliEnv) mustRun(v any, args ...string) string {
	e.t.Helper()
	res := e.run("", args...)
	if res.err != nil {
		e.t.Fatalf("%v: %v\nstderr: %s", args, res.err, res.errOut)
	}
	if v != nil {
		if err := json.Unmarshal([]byte(res.out), v); err != nil {
			e.t.Fatalf("%v: decode %q: %v", args, res.out, err)
		}
	}
	return res.out
}

func (e *cliEnv) loadConfig() *config.CLIConfig {
	e.t.Helper()
	cfg, err := config.Load(e.configPath)
	if err != nil {
		e.t.Fatal(err)
	}
	return cfg
}

func (e *cliEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		e.t.Fatal(err)
	}
	return path
}
