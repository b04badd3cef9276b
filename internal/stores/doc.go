// Package stores provides the Redis-backed ephemeral secret store and the
// typed stores built on it: pending signups keyed by email and password reset
// tickets keyed by token digest.
//
// # Design
//
// Every key carries a TTL set at write time; Redis enforces expiry, so an
// absent key and an expired key read back the same way. Records are encoded
// in a versioned binary layout. Reads never delete: callers remove a record
// only after the durable side effect it guards has succeeded.
//
// # What this package must NOT do
//
//   - Import blogauth or any sibling internal package.
//   - Generate OTPs or tokens, or make authentication decisions.
//   - Log or expose stored secrets.
package stores
