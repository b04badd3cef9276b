// Package blogauth issues and validates user identity credentials for a
// blogging application: OTP-gated signup, password signin producing access
// and refresh tokens, token refresh, and a time-boxed password reset.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// blogauth is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces [IdentityRepository] and [Notifier], and the
// classified [Error] values. Flow orchestration, the Redis-backed secret
// store and username derivation live under internal/ and are never exported.
//
// Multi-step flows bridge stateless requests through short-lived Redis
// entries only: a pending signup waits for its OTP, a reset ticket waits for
// its token. Neither is ever written to the durable user store.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Record sessions. Access and refresh tokens are verified by signature and
//     expiry alone; refresh tokens are not rotated or revoked.
//   - Enforce roles. The role claim is carried, never checked.
//   - Import any sub-package that re-imports blogauth (no import cycles).
//
// # Errors
//
// Every failure returned by an Engine method carries an [*Error] whose Kind
// classifies it (conflict, not found, bad request, unauthorized, server
// error, no content) and whose Code is the stable client-facing identifier.
// Use errors.Is against the exported sentinels or [KindOf] to branch.
package blogauth
