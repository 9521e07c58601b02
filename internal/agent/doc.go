// Package agent wires the resonance-agent process together.
//
// An Agent owns one core. On Start it signs in, choosing the account in
// this order: handle and password from the configuration, the credentials
// file, and finally a freshly provisioned account when use_auto_account is
// set. It then serves the local gateway and, when enabled, the Prometheus
// endpoint. Changes to the configuration or credentials file trigger a new
// sign-in when the account they describe differs from the current one.
package agent
