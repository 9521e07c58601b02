// Package metric provides Prometheus metrics for Resonance.
//
//   - prometheus.go: the Registry of client counters and histograms
//   - collector.go: a collector reporting live session state
//
// Every Registry method is safe to call on a nil *Registry so the core
// can run without metrics. The agent exposes them at /metrics.
package metric
