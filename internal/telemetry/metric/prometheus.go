// Package metric provides Prometheus metrics for Resonance.
package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resonance"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultTaken   = "taken"
)

// Registry holds all client metrics.
type Registry struct {
	AuthTotal       *prometheus.CounterVec
	RefreshTotal    *prometheus.CounterVec
	PublishTotal    *prometheus.CounterVec
	ProvisionTotal  *prometheus.CounterVec
	HandleChecks    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	GatewayRequests *prometheus.CounterVec
}

// NewRegistry creates the metrics and registers them with reg.
// A nil reg leaves the metrics unregistered, which is useful in tests.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		AuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_total",
			Help:      "Session creation attempts by result.",
		}, []string{"result"}),
		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Session refresh attempts by result.",
		}, []string{"result"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Record publish calls by result.",
		}, []string{"result"}),
		ProvisionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provision_total",
			Help:      "Account creation attempts by result.",
		}, []string{"result"}),
		HandleChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handle_checks_total",
			Help:      "Handle availability checks by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "xrpc_request_duration_seconds",
			Help:      "Latency of XRPC calls including redirect hops.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"nsid", "status"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Gateway requests by method and result.",
		}, []string{"method", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			r.AuthTotal,
			r.RefreshTotal,
			r.PublishTotal,
			r.ProvisionTotal,
			r.HandleChecks,
			r.RequestDuration,
			r.GatewayRequests,
		)
	}
	return r
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

// ObserveAuth counts a session creation attempt.
func (r *Registry) ObserveAuth(result string) {
	if r == nil {
		return
	}
	r.AuthTotal.WithLabelValues(result).Inc()
}

// ObserveRefresh counts a refresh attempt.
func (r *Registry) ObserveRefresh(result string) {
	if r == nil {
		return
	}
	r.RefreshTotal.WithLabelValues(result).Inc()
}

// ObservePublish counts a publish call.
func (r *Registry) ObservePublish(result string) {
	if r == nil {
		return
	}
	r.PublishTotal.WithLabelValues(result).Inc()
}

// ObserveProvision counts an account creation attempt.
func (r *Registry) ObserveProvision(result string) {
	if r == nil {
		return
	}
	r.ProvisionTotal.WithLabelValues(result).Inc()
}

// ObserveHandleCheck counts an availability check.
func (r *Registry) ObserveHandleCheck(result string) {
	if r == nil {
		return
	}
	r.HandleChecks.WithLabelValues(result).Inc()
}

// ObserveRequest records the latency of one XRPC call. status 0 means the
// call never produced a response.
func (r *Registry) ObserveRequest(nsid string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.RequestDuration.WithLabelValues(nsid, label).Observe(elapsed.Seconds())
}

// ObserveGateway counts a gateway request.
func (r *Registry) ObserveGateway(method, result string) {
	if r == nil {
		return
	}
	r.GatewayRequests.WithLabelValues(method, result).Inc()
}

// Handler returns an HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
