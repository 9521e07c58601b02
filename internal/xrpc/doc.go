// Package xrpc is the HTTP transport for AT Protocol XRPC calls.
//
//   - resolver.go: handle suffix -> server base URL routing
//   - client.go: JSON requests with manual, method-preserving redirects
//   - error.go: the {"error","message"} response envelope
//
// Redirects are never followed by net/http. Some gateways bounce POST
// traffic from an edge host to the origin with 301/302, and the default
// policy would replay those as GET. The Client re-issues the original
// method and body instead, up to MaxRedirects hops.
//
// Credentials are attached per request (WithBearer). The Client holds no
// authentication state and is safe for concurrent use.
package xrpc
