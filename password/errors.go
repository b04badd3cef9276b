package password

import "errors"

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned when the input exceeds the configured cap.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnknownScheme is returned for hashes no registered scheme recognizes.
	ErrUnknownScheme = errors.New("unknown password hash scheme")
)
