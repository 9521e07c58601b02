package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/telemetry/metric"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// DefaultRefreshSkew is how close to expiry an access token may get before
// Publish refreshes it up front.
const DefaultRefreshSkew = 30 * time.Second

// PublisherConfig holds configuration for Publisher.
type PublisherConfig struct {
	// Collection is the NSID records are written to.
	Collection string `koanf:"collection" yaml:"collection"`

	// RefreshSkew triggers a refresh before writing when the access token
	// expires within this window. Zero disables proactive refresh.
	RefreshSkew time.Duration `koanf:"refresh_skew" yaml:"refresh_skew"`
}

// DefaultPublisherConfig returns default configuration.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Collection:  domain.DefaultCollection,
		RefreshSkew: DefaultRefreshSkew,
	}
}

// Publisher writes records into the authenticated user's repository.
type Publisher struct {
	sessions   *SessionManager
	client     Transport
	collection string
	skew       time.Duration
	keys       *domain.RecordKeyGenerator
	logger     logger.Logger
	metrics    *metric.Registry
	now        func() time.Time
}

// NewPublisher creates a Publisher bound to sessions.
func NewPublisher(sessions *SessionManager, client Transport, cfg PublisherConfig, opts ...Option) *Publisher {
	o := buildOptions(opts)
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultCollection
	}
	return &Publisher{
		sessions:   sessions,
		client:     client,
		collection: cfg.Collection,
		skew:       cfg.RefreshSkew,
		keys:       domain.NewRecordKeyGenerator(),
		logger:     o.logger,
		metrics:    o.metrics,
		now:        o.now,
	}
}

// Publish writes record and returns the record key it was stored under.
//
// A 401 triggers one refresh; if that succeeds the write is retried exactly
// once with a fresh record key. Without a session no request is made.
func (p *Publisher) Publish(ctx context.Context, record json.RawMessage) (string, error) {
	rkey, err := p.publish(ctx, record)
	p.metrics.ObservePublish(metric.Result(err))
	return rkey, err
}

// PublishMap marshals fields and publishes them as one record.
func (p *Publisher) PublishMap(ctx context.Context, fields map[string]any) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", domain.ErrPublishFailed.WithCause(err).WithDetails(err.Error())
	}
	return p.Publish(ctx, data)
}

func (p *Publisher) publish(ctx context.Context, record json.RawMessage) (string, error) {
	if !p.sessions.IsAuthenticated() {
		return "", domain.ErrNotAuthenticated
	}
	if !domain.IsJSONObject(record) {
		return "", domain.ErrPublishFailed.WithDetails("record must be a JSON object")
	}

	log := p.logger.WithContext(ctx)

	if p.skew > 0 && p.sessions.Snapshot().ExpiresWithin(p.now(), p.skew) {
		if err := p.sessions.RefreshToken(ctx); err != nil {
			log.Debug("proactive refresh failed", "error", err)
		}
	}

	rkey, resp, err := p.put(ctx, record)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.Info("access token rejected, refreshing session")
		if err := p.sessions.RefreshToken(ctx); err != nil {
			return "", domain.ErrSessionExpired.WithCause(err).WithDetails(serverMessage(resp))
		}

		rkey, resp, err = p.put(ctx, record)
		if err != nil {
			return "", err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return "", domain.ErrSessionExpired.WithDetails(serverMessage(resp))
		}
	}

	if !resp.OK() {
		log.Warn("publish rejected", "status", resp.StatusCode)
		return "", domain.ErrPublishFailed.WithDetails(string(resp.Body))
	}

	log.Debug("record published", "collection", p.collection, "rkey", rkey)
	return rkey, nil
}

// put performs one putRecord call with a freshly generated record key.
func (p *Publisher) put(ctx context.Context, record json.RawMessage) (string, *xrpc.Response, error) {
	sess := p.sessions.Snapshot()
	if !sess.IsAuthenticated() {
		return "", nil, domain.ErrNotAuthenticated
	}

	req := domain.PublishRequest{
		Collection: p.collection,
		Repo:       sess.DID,
		RKey:       p.keys.Next(),
		Record:     record,
	}

	resp, err := p.client.Post(ctx, xrpc.Endpoint(sess.Endpoint, xrpc.NSIDPutRecord), req,
		xrpc.WithBearer(sess.AccessJWT))
	if err != nil {
		return "", nil, err
	}
	return req.RKey, resp, nil
}
