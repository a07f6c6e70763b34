// Package client talks to the rback.auth.v1.AuthService gRPC API and keeps
// the current session's token pair in memory. Calls to protected methods carry
// the access token; when the server rejects it, the client rotates the refresh
// token once and retries.
package client
