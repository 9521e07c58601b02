package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// fakePDS is an httptest-backed XRPC server that counts calls per NSID.
type fakePDS struct {
	srv *httptest.Server

	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]http.HandlerFunc
}

func newFakePDS(t *testing.T) *fakePDS {
	t.Helper()

	f := &fakePDS{
		calls:    make(map[string]int),
		handlers: make(map[string]http.HandlerFunc),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nsid := strings.TrimPrefix(r.URL.Path, "/xrpc/")

		f.mu.Lock()
		f.calls[nsid]++
		h := f.handlers[nsid]
		f.mu.Unlock()

		if h == nil {
			jsonResponse(w, http.StatusNotImplemented, map[string]string{"error": "MethodNotImplemented"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePDS) handle(nsid string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[nsid] = h
}

func (f *fakePDS) count(nsid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[nsid]
}

func (f *fakePDS) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// resolver routes every handle to the fake server.
func (f *fakePDS) resolver() *xrpc.Resolver {
	return xrpc.NewResolver(nil, f.srv.URL)
}

func newTestTransport() *xrpc.Client {
	return xrpc.NewClient(xrpc.WithLogger(logger.Discard()), xrpc.WithTimeout(5*time.Second))
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// signedToken returns an HS256 token whose exp claim is exp.
func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

// sessionHandler answers createSession / refreshSession with the given tokens.
func sessionHandler(access, refresh string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{
			"accessJwt":  access,
			"refreshJwt": refresh,
			"did":        "did:plc:alice",
			"handle":     "alice.bsky.social",
		})
	}
}
