package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/telemetry/metric"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// SessionState is the lifecycle state of a SessionManager.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// createSessionRequest is the body of com.atproto.server.createSession.
type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// sessionResponse is returned by both createSession and refreshSession.
type sessionResponse struct {
	AccessJWT  string `json:"accessJwt"`
	RefreshJWT string `json:"refreshJwt"`
	DID        string `json:"did"`
	Handle     string `json:"handle"`
}

// SessionManager owns the single authenticated session.
//
// Readers take a snapshot; writers replace the whole session in one
// assignment so a partially updated session is never observable.
// Authenticate and RefreshToken are serialized against each other.
type SessionManager struct {
	client   Transport
	resolver *xrpc.Resolver
	logger   logger.Logger
	metrics  *metric.Registry

	// opMu serializes Authenticate and RefreshToken.
	opMu sync.Mutex

	mu      sync.RWMutex
	session domain.Session
	state   SessionState
	// gen changes whenever the session is replaced or cleared, so an
	// in-flight refresh can tell its result is stale.
	gen uint64
}

// NewSessionManager creates an unauthenticated SessionManager.
func NewSessionManager(client Transport, resolver *xrpc.Resolver, opts ...Option) *SessionManager {
	o := buildOptions(opts)
	if resolver == nil {
		resolver = xrpc.NewDefaultResolver()
	}
	return &SessionManager{
		client:   client,
		resolver: resolver,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// State returns the current lifecycle state.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether an access token and DID are held.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.IsAuthenticated()
}

// Snapshot returns a copy of the current session.
func (m *SessionManager) Snapshot() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Clone()
}

// AuthenticateCredentials parses "handle:password" and authenticates.
func (m *SessionManager) AuthenticateCredentials(ctx context.Context, credentials string) error {
	creds, err := domain.ParseCredentials(credentials)
	if err != nil {
		return err
	}
	return m.Authenticate(ctx, creds.Handle, creds.Password)
}

// Authenticate signs in against the endpoint resolved from handle.
// On any failure the previous session, if any, is left untouched. If
// Logout runs while the request is in flight the new session is dropped.
func (m *SessionManager) Authenticate(ctx context.Context, handle, password string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" || password == "" {
		return domain.ErrInvalidCredentials
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	endpoint := m.resolver.Resolve(handle)
	log := m.logger.WithContext(ctx).With("handle", handle, "endpoint", endpoint)

	m.mu.Lock()
	m.state = StateAuthenticating
	gen := m.gen
	m.mu.Unlock()

	sess, err := m.createSession(ctx, endpoint, handle, password)
	m.metrics.ObserveAuth(metric.Result(err))

	m.mu.Lock()
	defer m.mu.Unlock()

	// A Logout that landed while createSession was in flight wins.
	if err == nil && m.gen != gen {
		err = domain.ErrAuthentication.WithDetails("logged out while signing in")
	}
	if err != nil {
		m.state = m.restingStateLocked()
		log.Warn("authentication failed", "error", err)
		return err
	}

	m.session = sess
	m.gen++
	m.state = StateAuthenticated
	log.Info("authenticated", "did", sess.DID)
	return nil
}

func (m *SessionManager) createSession(ctx context.Context, endpoint, handle, password string) (domain.Session, error) {
	resp, err := m.client.Post(ctx, xrpc.Endpoint(endpoint, xrpc.NSIDCreateSession),
		createSessionRequest{Identifier: handle, Password: password})
	if err != nil {
		return domain.Session{}, err
	}

	if !resp.OK() {
		return domain.Session{}, domain.ErrAuthentication.WithDetails(serverMessage(resp))
	}

	var out sessionResponse
	if err := resp.Decode(&out); err != nil {
		return domain.Session{}, err
	}
	if out.AccessJWT == "" || out.RefreshJWT == "" || out.DID == "" || out.Handle == "" {
		return domain.Session{}, domain.ErrMalformedResponse.WithDetails("createSession response is missing session fields")
	}

	return domain.Session{
		AccessJWT:       out.AccessJWT,
		RefreshJWT:      out.RefreshJWT,
		DID:             out.DID,
		Handle:          out.Handle,
		Endpoint:        endpoint,
		AccessExpiresAt: accessExpiry(out.AccessJWT),
	}, nil
}

// RefreshToken exchanges the refresh token for a new token pair.
// Only the tokens and their expiry change; identity fields are kept.
// Failure leaves the session as it was.
func (m *SessionManager) RefreshToken(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	current := m.session
	gen := m.gen
	if current.RefreshJWT == "" || current.Endpoint == "" {
		m.mu.Unlock()
		return domain.ErrRefreshUnavailable
	}
	m.state = StateRefreshing
	m.mu.Unlock()

	log := m.logger.WithContext(ctx).With("handle", current.Handle, "endpoint", current.Endpoint)

	pair, err := m.refreshSession(ctx, current)
	m.metrics.ObserveRefresh(metric.Result(err))

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil && m.gen != gen {
		err = domain.ErrSessionExpired.WithDetails("session changed while refreshing")
	}
	if err != nil {
		m.state = m.restingStateLocked()
		log.Warn("session refresh failed", "error", err)
		return err
	}

	next := m.session.Clone()
	next.AccessJWT = pair.AccessJWT
	next.RefreshJWT = pair.RefreshJWT
	next.AccessExpiresAt = accessExpiry(pair.AccessJWT)
	m.session = next
	m.state = StateAuthenticated
	log.Debug("session refreshed", "expires_at", next.AccessExpiresAt)
	return nil
}

func (m *SessionManager) refreshSession(ctx context.Context, current domain.Session) (sessionResponse, error) {
	resp, err := m.client.Post(ctx, xrpc.Endpoint(current.Endpoint, xrpc.NSIDRefreshSession),
		nil, xrpc.WithBearer(current.RefreshJWT))
	if err != nil {
		return sessionResponse{}, err
	}

	if !resp.OK() {
		return sessionResponse{}, domain.ErrSessionExpired.WithDetails(serverMessage(resp))
	}

	var out sessionResponse
	if err := resp.Decode(&out); err != nil {
		return sessionResponse{}, err
	}
	if out.AccessJWT == "" || out.RefreshJWT == "" {
		return sessionResponse{}, domain.ErrMalformedResponse.WithDetails("refreshSession response is missing tokens")
	}
	return out, nil
}

// Logout clears the session. It is safe to call repeatedly.
func (m *SessionManager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.IsZero() {
		m.logger.Info("logged out", "handle", m.session.Handle)
	}
	m.session = domain.Session{}
	m.gen++
	m.state = StateUnauthenticated
}

func (m *SessionManager) restingStateLocked() SessionState {
	if m.session.IsAuthenticated() {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// accessExpiry reads the exp claim without verifying the signature.
// The server remains the authority; this only drives proactive refresh.
func accessExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// serverMessage prefers the XRPC error message and falls back to the raw body.
func serverMessage(resp *xrpc.Response) string {
	xe := resp.Err()
	if xe.Message != "" {
		return xe.Message
	}
	if xe.Code != "" {
		return xe.Code
	}
	return strings.TrimSpace(string(resp.Body))
}
