package blogauth

import (
	"context"
	"time"
)

// User is the durable account record. It is created only by a successful
// [Engine.VerifyOTP]; afterwards only PasswordHash and UpdatedAt change.
type User struct {
	ID           string
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUserInput is the input for [IdentityRepository.Create].
type CreateUserInput struct {
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

// IdentityRepository is the durable user store that callers must provide.
//
// Lookups return [ErrIdentityNotFound] when no row matches; Create returns
// [ErrIdentityDuplicate] when the username or email is already taken.
// Implementations enforce uniqueness of both columns; that constraint is what
// resolves concurrent signups for the same email or username.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindOneByUsernameOrEmail(ctx context.Context, identifier string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, input CreateUserInput) (*User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// Notifier delivers out-of-band secrets to the account owner. Every call is
// awaited and its error fails the surrounding operation.
type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
	SendResetLink(ctx context.Context, email, token string) error
}

// SignupRequest is the input for [Engine.Signup].
type SignupRequest struct {
	Email    string
	Name     string
	Password string
}

// TokenPair is returned by [Engine.Signin]. Both tokens carry the same
// {id, role, email} claims.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Result is the success payload of operations that return only a status and
// a message code.
type Result struct {
	Status  Kind
	Message string
}

// StatusOK is the Status of every successful Result.
const StatusOK = KindOK

// Result messages.
const (
	MessageUserCreated     = "USER_CREATION_SUCCESS"
	MessageResetLinkSent   = "RESET_PASS_LINK"
	MessagePasswordChanged = "PASSWORD_CHANGE_SUCCESS"
)
