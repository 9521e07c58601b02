package gateway

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/yndnr/resonance-go/internal/core/domain"
)

// Methods.
const (
	MethodAuthenticate    = "authenticate"
	MethodIsAuthenticated = "is_authenticated"
	MethodPublish         = "publish"
	MethodLogout          = "logout"
	MethodStatus          = "status"
)

// Gateway errors.
var (
	ErrBadRequest    = domain.NewDomainError("RS-GW-4000", "malformed gateway request")
	ErrUnknownMethod = domain.NewDomainError("RS-GW-4040", "unknown method")
	ErrRateLimited   = domain.NewDomainError("RS-GW-4290", "publish rate limit exceeded")
	ErrInternal      = domain.NewDomainError("RS-GW-5000", "internal gateway error")
)

// Request is one line sent by a client.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one line sent back by the agent.
type Response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AuthenticateParams are the params of MethodAuthenticate.
type AuthenticateParams struct {
	// Credentials is "handle:password".
	Credentials string `json:"credentials"`
}

// AuthenticateResult is the result of MethodAuthenticate.
type AuthenticateResult struct {
	Handle string `json:"handle"`
	DID    string `json:"did"`
}

// IsAuthenticatedResult is the result of MethodIsAuthenticated.
type IsAuthenticatedResult struct {
	Authenticated bool `json:"authenticated"`
}

// PublishParams are the params of MethodPublish.
type PublishParams struct {
	Record json.RawMessage `json:"record"`
	// Async returns as soon as the record is accepted for publishing.
	Async bool `json:"async,omitempty"`
}

// PublishResult is the result of MethodPublish. RKey is empty for async
// publishes.
type PublishResult struct {
	RKey     string `json:"rkey,omitempty"`
	Accepted bool   `json:"accepted"`
}

// StatusResult is the result of MethodStatus.
type StatusResult struct {
	Authenticated   bool       `json:"authenticated"`
	State           string     `json:"state"`
	Handle          string     `json:"handle,omitempty"`
	DID             string     `json:"did,omitempty"`
	Endpoint        string     `json:"endpoint,omitempty"`
	AccessExpiresAt *time.Time `json:"access_expires_at,omitempty"`
	Version         string     `json:"version"`
	Uptime          string     `json:"uptime"`
}

// DefaultSocketPath returns $XDG_RUNTIME_DIR/resonance/agent.sock, or a
// per-user path in the temp directory when XDG_RUNTIME_DIR is unset.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "resonance", "agent.sock")
	}
	return filepath.Join(os.TempDir(), "resonance-"+strconv.Itoa(os.Getuid())+".sock")
}
