package blogauth

import (
	"errors"
	"fmt"
)

// Kind classifies an Error by the caller-visible outcome it represents.
// Transport layers map kinds to their own status codes.
type Kind int

const (
	// KindOK is reported for a nil error.
	KindOK Kind = iota
	KindConflict
	KindNotFound
	KindBadRequest
	KindUnauthorized
	KindServerError
	KindNoContent
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNoContent:
		return "no_content"
	default:
		return "server_error"
	}
}

// Error is a classified outcome of an engine operation. Code is the stable
// machine-readable identifier surfaced to clients; the underlying cause, if
// any, is wrapped around the sentinel and reachable through errors.Unwrap.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	return e.Code
}

var (
	// ErrInvalidInput is returned when a required field is empty or the
	// password violates the hashing policy.
	ErrInvalidInput = &Error{Kind: KindBadRequest, Code: "INVALID_INPUT"}
	// ErrUserExists is returned by Signup when the email is already registered.
	ErrUserExists = &Error{Kind: KindConflict, Code: "USER_EXIST"}
	// ErrOTPNotFound is returned when no pending signup exists or it expired.
	ErrOTPNotFound = &Error{Kind: KindNotFound, Code: "OTP_NOT_FOUND"}
	// ErrOTPIncorrect is returned when the submitted OTP does not match.
	ErrOTPIncorrect = &Error{Kind: KindBadRequest, Code: "OTP_INCORRECT"}
	// ErrUserCreationFailed is returned when the repository rejects the new user.
	ErrUserCreationFailed = &Error{Kind: KindConflict, Code: "USER_CREATION_FAILED"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND"}
	ErrPasswordIncorrect  = &Error{Kind: KindUnauthorized, Code: "PASSWORD_INCORRECT"}
	ErrServerError        = &Error{Kind: KindServerError, Code: "SERVER_ERROR"}
	// ErrNotificationFailed is returned when the OTP or reset mail could not be sent.
	ErrNotificationFailed = &Error{Kind: KindServerError, Code: "NOTIFICATION_FAILED"}
	// ErrUsernameUnavailable is returned when every username candidate is taken.
	ErrUsernameUnavailable = &Error{Kind: KindServerError, Code: "USERNAME_UNAVAILABLE"}
	// ErrResetTokenExpired is returned when a reset token has no live ticket.
	ErrResetTokenExpired = &Error{Kind: KindNotFound, Code: "TOKEN_EXPIRED"}
	// ErrNoToken is returned by Refresh when no refresh token was supplied.
	ErrNoToken = &Error{Kind: KindNotFound, Code: "NO_TOKEN"}
	// ErrRefreshTokenExpired is returned by Refresh when the token fails
	// signature or expiry verification.
	ErrRefreshTokenExpired = &Error{Kind: KindNoContent, Code: "TOKEN_EXPIRED"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED"}
	// ErrEngineNotReady is returned when an Engine method runs on an engine
	// that was not produced by Builder.Build.
	ErrEngineNotReady = &Error{Kind: KindServerError, Code: "ENGINE_NOT_READY"}
)

var (
	// ErrIdentityNotFound must be returned by IdentityRepository lookups that
	// match no row.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrIdentityDuplicate must be returned by IdentityRepository.Create when
	// the username or email is already taken.
	ErrIdentityDuplicate = errors.New("identity already exists")
)

// KindOf classifies err. A nil error is KindOK; an error that carries no
// *Error is KindServerError.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServerError
}

// CodeOf returns the client-facing code of err, or SERVER_ERROR when err
// carries no *Error.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrServerError.Code
}

func wrapCause(outcome *Error, cause error) error {
	if cause == nil {
		return outcome
	}
	return fmt.Errorf("%w: %w", outcome, cause)
}

func isIdentityNotFound(err error) bool {
	return errors.Is(err, ErrIdentityNotFound)
}

// errNotify marks failures returned by the Notifier.
var errNotify = errors.New("notifier failed")
