// Package metric provides Prometheus metrics for Resonance.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SessionState is the view of the live session the collector reports.
type SessionState struct {
	Authenticated   bool
	AccessExpiresAt time.Time
}

// SessionCollector reports session state at scrape time.
type SessionCollector struct {
	state         func() SessionState
	now           func() time.Time
	authenticated *prometheus.Desc
	expiresIn     *prometheus.Desc
}

// NewSessionCollector creates a collector that calls state on every scrape.
func NewSessionCollector(state func() SessionState) *SessionCollector {
	return &SessionCollector{
		state: state,
		now:   time.Now,
		authenticated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "authenticated"),
			"1 if a session is established, 0 otherwise.",
			nil, nil,
		),
		expiresIn: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "session", "access_expires_in_seconds"),
			"Seconds until the access token expires, when known.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.authenticated
	ch <- c.expiresIn
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.state()

	var authenticated float64
	if st.Authenticated {
		authenticated = 1
	}
	ch <- prometheus.MustNewConstMetric(c.authenticated, prometheus.GaugeValue, authenticated)

	if st.Authenticated && !st.AccessExpiresAt.IsZero() {
		remaining := st.AccessExpiresAt.Sub(c.now()).Seconds()
		ch <- prometheus.MustNewConstMetric(c.expiresIn, prometheus.GaugeValue, remaining)
	}
}
