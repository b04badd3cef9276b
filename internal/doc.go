// Package internal contains helpers private to blogauth: OTP and reset-token
// generation.
//
// # Sub-packages
//
//   - flows: flow orchestrators for every Engine operation
//   - stores: Redis-backed TTL stores for pending signups and reset tickets
//   - username: username derivation and collision resolution
//   - httpapi: HTTP dispatch for the blogauthd daemon
//   - config: environment-driven daemon configuration
//
// # What this package must NOT do
//
//   - Export types that appear in the public blogauth API.
//   - Be imported by any package outside the blogauth module.
package internal
