package xrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/telemetry/metric"
)

// XRPC method identifiers used by the client.
const (
	NSIDCreateSession  = "com.atproto.server.createSession"
	NSIDRefreshSession = "com.atproto.server.refreshSession"
	NSIDResolveHandle  = "com.atproto.identity.resolveHandle"
	NSIDCreateAccount  = "com.atproto.server.createAccount"
	NSIDPutRecord      = "com.atproto.repo.putRecord"
)

// Client defaults.
const (
	DefaultMaxRedirects = 5
	DefaultTimeout      = 30 * time.Second
	DefaultUserAgent    = "resonance-go/dev"

	// maxResponseBytes caps how much of a response body is buffered.
	maxResponseBytes = 4 << 20
)

// Client performs XRPC calls over a single shared http.Client.
type Client struct {
	http         *http.Client
	userAgent    string
	maxRedirects int
	metrics      *metric.Registry
	logger       logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses hc as the underlying transport. Its redirect policy
// is replaced; the Client follows redirects itself.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		clone := *hc
		c.http = &clone
	}
}

// WithTimeout sets the per-attempt timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxRedirects sets the redirect hop bound.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithMetrics records request latency into m.
func WithMetrics(m *metric.Registry) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new XRPC client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: DefaultTimeout},
		userAgent:    DefaultUserAgent,
		maxRedirects: DefaultMaxRedirects,
		logger:       logger.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.http.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return c
}

// RequestOption customizes a single request.
type RequestOption func(http.Header)

// WithBearer attaches token as a bearer credential to this request only.
func WithBearer(token string) RequestOption {
	return func(h http.Header) {
		if token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHeader sets an arbitrary header on this request only.
func WithHeader(key, value string) RequestOption {
	return func(h http.Header) {
		h.Set(key, value)
	}
}

// Response is a fully buffered XRPC response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// URL is the address that produced this response, after redirects.
	URL string
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return domain.ErrMalformedResponse.WithCause(err)
	}
	return nil
}

// Err parses the body as an XRPC error envelope.
func (r *Response) Err() *Error {
	return parseError(r.StatusCode, r.Body)
}

// Endpoint builds "{base}/xrpc/{nsid}".
func Endpoint(base, nsid string) string {
	return strings.TrimRight(base, "/") + "/xrpc/" + nsid
}

// Query builds an endpoint URL with query parameters.
func Query(base, nsid string, params url.Values) string {
	u := Endpoint(base, nsid)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Post sends body as JSON with POST, following redirects without changing
// the method or body. A nil body sends an empty request body.
func (c *Client) Post(ctx context.Context, rawURL string, body any, opts ...RequestOption) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if raw, ok := body.(json.RawMessage); ok {
			payload = raw
		} else if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}
	return c.Do(ctx, http.MethodPost, rawURL, payload, opts...)
}

// Get performs a GET, following redirects.
func (c *Client) Get(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, nil, opts...)
}

// Do sends a request and follows up to maxRedirects 3xx responses that
// carry a Location header, replaying the same method, headers and body.
func (c *Client) Do(ctx context.Context, method, rawURL string, body []byte, opts ...RequestOption) (*Response, error) {
	header := make(http.Header)
	header.Set("User-Agent", c.userAgent)
	header.Set("Accept", "application/json")
	if method != http.MethodGet {
		header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(header)
	}

	nsid := nsidOf(rawURL)
	start := time.Now()

	current := rawURL
	for hop := 0; ; hop++ {
		resp, err := c.send(ctx, method, current, body, header)
		if err != nil {
			c.metrics.ObserveRequest(nsid, 0, time.Since(start))
			return nil, domain.ErrNetwork.WithCause(err).WithDetails(err.Error())
		}

		location := resp.Header.Get("Location")
		if !isRedirect(resp.StatusCode) || location == "" {
			c.metrics.ObserveRequest(nsid, resp.StatusCode, time.Since(start))
			return resp, nil
		}

		if hop >= c.maxRedirects {
			c.metrics.ObserveRequest(nsid, resp.StatusCode, time.Since(start))
			return nil, domain.ErrTooManyRedirects.WithDetails(
				fmt.Sprintf("stopped after %d redirects at %s", hop, current))
		}

		next, err := resolveLocation(current, location)
		if err != nil {
			c.metrics.ObserveRequest(nsid, resp.StatusCode, time.Since(start))
			return nil, domain.ErrNetwork.WithCause(err).WithDetails("invalid redirect location " + location)
		}

		c.logger.Debug("following redirect", "from", current, "to", next, "status", resp.StatusCode)
		current = next
	}
}

func (c *Client) send(ctx context.Context, method, rawURL string, body []byte, header http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header = header.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		URL:        rawURL,
	}, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// resolveLocation resolves a possibly relative Location against base.
func resolveLocation(base, location string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	loc, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(loc).String(), nil
}

func nsidOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	_, nsid, ok := strings.Cut(u.Path, "/xrpc/")
	if !ok || nsid == "" {
		return "unknown"
	}
	return nsid
}
