// Package tlsroots builds the trust store XRPC clients verify servers
// against.
//
// Self-hosted servers are often fronted by a private CA. A CA file (or a
// directory of .pem/.crt/.cer files) is added on top of the system roots
// and the result is turned into an *http.Client for the xrpc package.
package tlsroots
