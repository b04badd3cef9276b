// Package jwt issues and verifies the signed tokens that carry a user's
// identity claims {id, role, email}. Access and refresh tokens are produced
// by two independent Managers with their own keys and lifetimes.
package jwt
