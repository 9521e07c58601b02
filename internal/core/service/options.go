package service

import (
	"context"
	"time"

	"github.com/yndnr/resonance-go/internal/telemetry/logger"
	"github.com/yndnr/resonance-go/internal/telemetry/metric"
	"github.com/yndnr/resonance-go/internal/xrpc"
)

// Transport is the subset of *xrpc.Client used by the services.
type Transport interface {
	Post(ctx context.Context, url string, body any, opts ...xrpc.RequestOption) (*xrpc.Response, error)
	Get(ctx context.Context, url string, opts ...xrpc.RequestOption) (*xrpc.Response, error)
}

// Option configures the shared dependencies of a service.
type Option func(*options)

type options struct {
	logger  logger.Logger
	metrics *metric.Registry
	now     func() time.Time
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the metric registry. A nil registry disables metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logger.OrDefault(o.logger)
	if o.now == nil {
		o.now = time.Now
	}
	return o
}
