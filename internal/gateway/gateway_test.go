package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/resonance-go/internal/core/service"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

type testEnv struct {
	client  *Client
	server  *Server
	core    *service.Core
	puts    atomic.Int32
	putDone chan string
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{putDone: make(chan string, 10)}

	pds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.TrimPrefix(r.URL.Path, "/xrpc/") {
		case xrpc.NSIDCreateSession:
			jsonResponse(w, http.StatusOK, map[string]string{
				"accessJwt": "access", "refreshJwt": "refresh",
				"did": "did:plc:alice", "handle": "alice.bsky.social",
			})
		case xrpc.NSIDPutRecord:
			var req struct {
				RKey string `json:"rkey"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			env.puts.Add(1)
			env.putDone <- req.RKey
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(pds.Close)

	transport := xrpc.NewClient(xrpc.WithLogger(logger.Discard()))
	env.core = service.NewCore(transport, xrpc.NewResolver(nil, pds.URL), service.DefaultConfig(),
		service.WithLogger(logger.Discard()))

	handler := NewHandler(env.core, HandlerConfig{}, logger.Discard(), nil)
	path := filepath.Join(t.TempDir(), "gw.sock")
	env.server = NewServer(path, handler, WithServerLogger(logger.Discard()))
	if err := env.server.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go func() { _ = env.server.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = env.server.Shutdown(ctx)
	})

	env.client = NewClient(path)
	return env
}

func remoteCode(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func TestGateway_StatusBeforeAuth(t *testing.T) {
	env := newTestEnv(t)

	st, err := env.client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.Authenticated || st.State != "unauthenticated" || st.Version == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestGateway_AuthenticateAndPublish(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.client.Authenticate(ctx, "alice.bsky.social:pw")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.DID != "did:plc:alice" || res.Handle != "alice.bsky.social" {
		t.Errorf("result = %+v", res)
	}

	ok, err := env.client.IsAuthenticated(ctx)
	if err != nil || !ok {
		t.Fatalf("IsAuthenticated() = %v, %v", ok, err)
	}

	pub, err := env.client.Publish(ctx, json.RawMessage(`{"name":"Alice"}`), false)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !pub.Accepted || pub.RKey == "" {
		t.Errorf("publish result = %+v", pub)
	}
	if got := <-env.putDone; got != pub.RKey {
		t.Errorf("server saw rkey %q, client got %q", got, pub.RKey)
	}
}

func TestGateway_AsyncPublish(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.client.Authenticate(ctx, "alice.bsky.social:pw"); err != nil {
		t.Fatal(err)
	}

	pub, err := env.client.Publish(ctx, json.RawMessage(`{"name":"Alice"}`), true)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !pub.Accepted || pub.RKey != "" {
		t.Errorf("async result = %+v", pub)
	}

	select {
	case <-env.putDone:
	case <-time.After(2 * time.Second):
		t.Fatal("async publish never reached the server")
	}
}

func TestGateway_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.Publish(ctx, json.RawMessage(`{"a":1}`), false)
	if code := remoteCode(err); code != "RS-AUTH-4012" {
		t.Errorf("unauthenticated publish code = %q (%v)", code, err)
	}
	if env.puts.Load() != 0 {
		t.Error("unauthenticated publish reached the server")
	}

	_, err = env.client.Authenticate(ctx, "missing-colon")
	if code := remoteCode(err); code != "RS-AUTH-4000" {
		t.Errorf("bad credentials code = %q (%v)", code, err)
	}

	if _, err := env.client.Authenticate(ctx, "alice.bsky.social:pw"); err != nil {
		t.Fatal(err)
	}
	_, err = env.client.Publish(ctx, json.RawMessage(`[1,2]`), false)
	if code := remoteCode(err); code != ErrBadRequest.Code {
		t.Errorf("non-object record code = %q (%v)", code, err)
	}

	err = env.client.Call(ctx, "explode", nil, nil)
	if code := remoteCode(err); code != ErrUnknownMethod.Code {
		t.Errorf("unknown method code = %q (%v)", code, err)
	}
}

func TestGateway_Logout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.client.Authenticate(ctx, "alice.bsky.social:pw"); err != nil {
		t.Fatal(err)
	}

	if err := env.client.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if ok, _ := env.client.IsAuthenticated(ctx); ok {
		t.Error("still authenticated after logout")
	}
}

func TestGateway_RawProtocol(t *testing.T) {
	env := newTestEnv(t)

	conn, err := net.Dial("unix", env.server.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	_, err = conn.Write([]byte("not json\n" + `{"method":"is_authenticated"}` + "\n" + `{"id":"abc","method":"status"}` + "\n"))
	if err != nil {
		t.Fatal(err)
	}

	reader := bufio.NewReader(conn)
	var resps []Response
	for i := 0; i < 3; i++ {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			t.Fatalf("read response %d: %v", i, err)
		}
		var r Response
		if err := json.Unmarshal(line, &r); err != nil {
			t.Fatalf("decode response %d: %v", i, err)
		}
		resps = append(resps, r)
	}

	if resps[0].OK || resps[0].Error == nil || resps[0].Error.Code != ErrBadRequest.Code {
		t.Errorf("malformed line response = %+v", resps[0])
	}
	if !resps[1].OK || len(resps[1].ID) != 26 {
		t.Errorf("generated id = %q, ok = %v", resps[1].ID, resps[1].OK)
	}
	if resps[2].ID != "abc" {
		t.Errorf("echoed id = %q", resps[2].ID)
	}
}

func TestServer_RemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gw.sock")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	core := service.NewCore(xrpc.NewClient(), nil, service.DefaultConfig(), service.WithLogger(logger.Discard()))
	s := NewServer(path, NewHandler(core, HandlerConfig{}, logger.Discard(), nil), WithServerLogger(logger.Discard()))
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go func() { _ = s.Serve() }()

	second := NewServer(path, NewHandler(core, HandlerConfig{}, logger.Discard(), nil), WithServerLogger(logger.Discard()))
	if err := second.Listen(); err == nil {
		t.Error("second Listen() should fail while the first server is live")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("socket file should be removed on shutdown")
	}
}

func TestServer_ShutdownUnblocksIdleConnections(t *testing.T) {
	env := newTestEnv(t)

	conn, err := net.Dial("unix", env.server.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := env.server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
