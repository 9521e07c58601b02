// Package gateway exposes the client core to other local processes.
//
// The agent listens on a Unix domain socket. Each line a client writes is
// one JSON request; the agent answers each with one JSON line:
//
//	-> {"id":"01J...","method":"publish","params":{"record":{...}}}
//	<- {"id":"01J...","ok":true,"result":{"rkey":"1700000000000-4821"}}
//
// Methods: authenticate, is_authenticated, publish, logout, status.
// Access is controlled by file system permissions on the socket; it is
// created with mode 0600.
package gateway
