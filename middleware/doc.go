// Package middleware exposes HTTP middleware that admits requests carrying a
// valid blogauth access token.
//
// # Guards
//
//   - [Guard] rejects requests without a valid bearer token.
//   - [Optional] attaches claims when a valid token is present and never rejects.
//
// Both read the Authorization header, delegate verification to an
// [AccessValidator] (normally *blogauth.Engine), and inject the validated
// claims into the request context.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to the validator).
//   - Access Redis or the user store.
//   - Make role decisions. The role claim is carried, never enforced.
package middleware
