// Package main provides the entry point for resonance-cli.
//
// resonance-cli signs in to AT Protocol servers, provisions accounts and
// publishes character records, either directly or through a running
// resonance-agent.
//
// Usage:
//
//	resonance-cli login --handle alice.bsky.social --password-stdin
//	resonance-cli account auto
//	resonance-cli publish character.json
//	resonance-cli -o json gateway status
package main
