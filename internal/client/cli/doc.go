// Package cli implements rbackctl, an interactive shell over the session
// API: register, log in, inspect the current identity, rotate and revoke the
// refresh token.
package cli
