// Package flows contains the orchestrators behind every Engine operation:
// signup and OTP verification, signin, password reset, refresh and access
// token validation.
//
// Each Run function takes a typed dependency struct of plain functions and
// holds no state between calls, which keeps the flows testable with fakes
// and the Engine thin.
//
// # Architecture boundaries
//
// Flows coordinate the secret store, identity repository, credential codec,
// token managers, notifier, audit and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import blogauth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
//   - Retry a failed step. Retry is the caller's decision.
package flows
