// Package userstore provides blogauth.IdentityRepository implementations.
//
// [Postgres] stores users in a single table created by the embedded goose
// migrations ([Migrate]); uniqueness of username and email is enforced by the
// database, and a unique violation surfaces as blogauth.ErrIdentityDuplicate.
// [Memory] keeps the same rules in process memory for development and tests.
package userstore
