package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/resonance-go/internal/core/domain"
	"github.com/yndnr/resonance-go/internal/core/service"
	"github.com/yndnr/resonance-go/internal/infra/buildinfo"
	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/telemetry/metric"
)

// asyncPublishTimeout bounds a fire-and-forget publish.
const asyncPublishTimeout = time.Minute

// HandlerConfig holds configuration for Handler.
type HandlerConfig struct {
	// PublishRate is the sustained publish rate per second. Zero or
	// negative means unlimited.
	PublishRate  float64
	PublishBurst int
}

// Handler dispatches gateway requests to the core.
type Handler struct {
	core    *service.Core
	limiter *rate.Limiter
	logger  logger.Logger
	metrics *metric.Registry
	started time.Time

	// background is cancelled by Close to abort async publishes.
	background context.Context
	cancel     context.CancelFunc
	async      sync.WaitGroup
}

// NewHandler creates a Handler around core.
func NewHandler(core *service.Core, cfg HandlerConfig, l logger.Logger, m *metric.Registry) *Handler {
	limit := rate.Inf
	if cfg.PublishRate > 0 {
		limit = rate.Limit(cfg.PublishRate)
	}
	burst := cfg.PublishBurst
	if burst <= 0 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		core:       core,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger.OrDefault(l),
		metrics:    m,
		started:    time.Now(),
		background: ctx,
		cancel:     cancel,
	}
}

// Handle executes one request and builds its response.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	result, err := h.dispatch(ctx, req)
	h.metrics.ObserveGateway(req.Method, metric.Result(err))

	resp := Response{ID: req.ID}
	if err != nil {
		resp.Error = errorBody(err)
		logger.L(ctx).Debug("gateway request failed", "method", req.Method, "error", err)
		return resp
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = errorBody(ErrInternal.WithCause(err))
		return resp
	}
	resp.OK = true
	resp.Result = data
	return resp
}

func (h *Handler) dispatch(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case MethodAuthenticate:
		return h.authenticate(ctx, req.Params)
	case MethodIsAuthenticated:
		return IsAuthenticatedResult{Authenticated: h.core.Sessions.IsAuthenticated()}, nil
	case MethodPublish:
		return h.publish(ctx, req.Params)
	case MethodLogout:
		h.core.Sessions.Logout()
		return struct{}{}, nil
	case MethodStatus:
		return h.status(), nil
	default:
		return nil, ErrUnknownMethod.WithDetails(req.Method)
	}
}

func (h *Handler) authenticate(ctx context.Context, raw json.RawMessage) (any, error) {
	var params AuthenticateParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if err := h.core.Sessions.AuthenticateCredentials(ctx, params.Credentials); err != nil {
		return nil, err
	}
	s := h.core.Sessions.Snapshot()
	return AuthenticateResult{Handle: s.Handle, DID: s.DID}, nil
}

func (h *Handler) publish(ctx context.Context, raw json.RawMessage) (any, error) {
	var params PublishParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if !domain.IsJSONObject(params.Record) {
		return nil, ErrBadRequest.WithDetails("params.record must be a JSON object")
	}
	if !h.core.Sessions.IsAuthenticated() {
		return nil, domain.ErrNotAuthenticated
	}

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, ErrRateLimited.WithCause(err)
	}

	if !params.Async {
		rkey, err := h.core.Publisher.Publish(ctx, params.Record)
		if err != nil {
			return nil, err
		}
		return PublishResult{RKey: rkey, Accepted: true}, nil
	}

	log := logger.L(ctx)
	h.async.Add(1)
	pubCtx, cancel := context.WithTimeout(h.background, asyncPublishTimeout)
	done := service.Go(pubCtx, func(ctx context.Context) (string, error) {
		return h.core.Publisher.Publish(ctx, params.Record)
	})
	go func() {
		defer h.async.Done()
		defer cancel()
		res := <-done
		if res.Err != nil {
			log.Warn("async publish failed", "error", res.Err)
			return
		}
		log.Debug("async publish finished", "rkey", res.Value)
	}()

	return PublishResult{Accepted: true}, nil
}

func (h *Handler) status() StatusResult {
	s := h.core.Sessions.Snapshot()
	out := StatusResult{
		Authenticated: s.IsAuthenticated(),
		State:         h.core.Sessions.State().String(),
		Handle:        s.Handle,
		DID:           s.DID,
		Endpoint:      s.Endpoint,
		Version:       buildinfo.Version,
		Uptime:        time.Since(h.started).Round(time.Second).String(),
	}
	if !s.AccessExpiresAt.IsZero() {
		exp := s.AccessExpiresAt
		out.AccessExpiresAt = &exp
	}
	return out
}

// Close waits for async publishes, cancelling them once ctx is done.
func (h *Handler) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.async.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.cancel()
		return nil
	case <-ctx.Done():
		h.cancel()
		return ctx.Err()
	}
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrBadRequest.WithDetails("missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrBadRequest.WithCause(err).WithDetails(err.Error())
	}
	return nil
}

func errorBody(err error) *ErrorBody {
	var de *domain.DomainError
	if errors.As(err, &de) {
		msg := de.Message
		if de.Details != "" {
			msg += ": " + de.Details
		}
		return &ErrorBody{Code: de.Code, Message: msg}
	}
	return &ErrorBody{Code: ErrInternal.Code, Message: err.Error()}
}
