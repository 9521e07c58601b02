// Package main provides the entry point for resonance-agent.
//
// resonance-agent keeps one AT Protocol session alive and exposes it to
// local processes over a Unix socket gateway. It optionally serves
// Prometheus metrics.
package main
