// Package service implements the Resonance client core.
//
// This package contains:
//
//   - SessionManager: createSession / refreshSession lifecycle
//   - Publisher: putRecord with a single refresh-then-retry on 401
//   - Provisioner: handle generation, availability checks, account creation
//
// All network I/O goes through a Transport (normally *xrpc.Client), and every
// blocking operation takes a context.Context. Credentials are attached per
// request; nothing here stores a token on the shared HTTP client.
package service
