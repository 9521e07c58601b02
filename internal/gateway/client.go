package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultDialTimeout bounds connecting to the agent socket.
const DefaultDialTimeout = 3 * time.Second

// RemoteError is an error reported by the agent.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Client calls a running agent over its Unix socket. Each call uses its
// own connection.
type Client struct {
	path        string
	dialTimeout time.Duration
}

// NewClient creates a gateway client for socketPath.
func NewClient(socketPath string) *Client {
	return &Client{path: socketPath, dialTimeout: DefaultDialTimeout}
}

// Call sends one request and decodes the result into out (which may be nil).
// A response with ok=false is returned as *RemoteError.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	req := Request{ID: ulid.Make().String(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode params: %w", err)
		}
		req.Params = raw
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.path)
	if err != nil {
		return fmt.Errorf("connect to agent at %s: %w", c.path, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	reader := bufio.NewReaderSize(conn, 64*1024)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !resp.OK {
		if resp.Error == nil {
			return &RemoteError{Code: ErrInternal.Code, Message: "request failed"}
		}
		return &RemoteError{Code: resp.Error.Code, Message: resp.Error.Message}
	}

	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// Authenticate signs the agent in with "handle:password" credentials.
func (c *Client) Authenticate(ctx context.Context, credentials string) (AuthenticateResult, error) {
	var out AuthenticateResult
	err := c.Call(ctx, MethodAuthenticate, AuthenticateParams{Credentials: credentials}, &out)
	return out, err
}

// IsAuthenticated reports whether the agent holds a session.
func (c *Client) IsAuthenticated(ctx context.Context) (bool, error) {
	var out IsAuthenticatedResult
	err := c.Call(ctx, MethodIsAuthenticated, nil, &out)
	return out.Authenticated, err
}

// Publish asks the agent to publish record.
func (c *Client) Publish(ctx context.Context, record json.RawMessage, async bool) (PublishResult, error) {
	var out PublishResult
	err := c.Call(ctx, MethodPublish, PublishParams{Record: record, Async: async}, &out)
	return out, err
}

// Logout clears the agent's session.
func (c *Client) Logout(ctx context.Context) error {
	return c.Call(ctx, MethodLogout, nil, nil)
}

// Status returns the agent's session status.
func (c *Client) Status(ctx context.Context) (StatusResult, error) {
	var out StatusResult
	err := c.Call(ctx, MethodStatus, nil, &out)
	return out, err
}
