package flows

import (
	"context"

	"github.com/MrEthical07/blogauth/jwt"
)

// LoginUserRecord is a flow-local user model used by the signin flow.
type LoginUserRecord struct {
	UserID       string
	Email        string
	PasswordHash string
	Role         string
}

// LoginMetrics carries metric IDs needed by the signin flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	PasswordUpgraded int
}

// LoginEvents carries audit event names used by the signin flow.
type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

// LoginErrors carries host-level sentinel errors used by the signin flow.
type LoginErrors struct {
	EngineNotReady    error
	InvalidInput      error
	UserNotFound      error
	PasswordIncorrect error
	ServerError       error
}

// LoginDeps captures signin flow dependencies.
type LoginDeps struct {
	UpgradeOnLogin bool

	FindUser       func(context.Context, string) (LoginUserRecord, error)
	IsUserNotFound func(error) bool
	VerifyPassword func(string, string) (bool, error)
	NeedsUpgrade   func(string) (bool, error)
	HashPassword   func(string) (string, error)
	UpdatePassword func(context.Context, string, string) error

	IssueAccess  func(jwt.Identity) (string, error)
	IssueRefresh func(jwt.Identity) (string, error)

	Warn      func(string, ...any)
	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunSignin authenticates identifier (username or email) with password and
// issues a token pair. No server-side session is recorded.
func RunSignin(ctx context.Context, identifier, password string, deps LoginDeps) (TokenPair, error) {
	normalizeLoginDeps(&deps)

	if deps.FindUser == nil || deps.VerifyPassword == nil || deps.IssueAccess == nil || deps.IssueRefresh == nil {
		return TokenPair{}, deps.Errors.EngineNotReady
	}
	if identifier == "" || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return TokenPair{}, deps.Errors.InvalidInput
	}

	user, err := deps.FindUser(ctx, identifier)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		if deps.IsUserNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.UserNotFound, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			return TokenPair{}, deps.Errors.UserNotFound
		}
		return TokenPair{}, wrap(deps.Errors.ServerError, err)
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return TokenPair{}, wrap(deps.Errors.ServerError, err)
	}
	if !ok {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.UserID, deps.Errors.PasswordIncorrect, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return TokenPair{}, deps.Errors.PasswordIncorrect
	}

	if deps.UpgradeOnLogin {
		upgradePasswordHash(ctx, user, password, deps)
	}

	identity := jwt.Identity{UserID: user.UserID, Role: user.Role, Email: user.Email}
	access, err := deps.IssueAccess(identity)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return TokenPair{}, wrap(deps.Errors.ServerError, err)
	}
	refresh, err := deps.IssueRefresh(identity)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return TokenPair{}, wrap(deps.Errors.ServerError, err)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.UserID, nil, nil)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// upgradePasswordHash rehashes with current parameters after a verified
// login. Failures are logged and never fail the login.
func upgradePasswordHash(ctx context.Context, user LoginUserRecord, password string, deps LoginDeps) {
	if deps.NeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePassword == nil {
		return
	}
	needs, err := deps.NeedsUpgrade(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := deps.HashPassword(password)
	if err != nil {
		deps.Warn("blogauth: password rehash failed", "user_id", user.UserID, "error", err)
		return
	}
	if err := deps.UpdatePassword(ctx, user.Email, hash); err != nil {
		deps.Warn("blogauth: password upgrade store failed", "user_id", user.UserID, "error", err)
		return
	}
	deps.MetricInc(deps.Metrics.PasswordUpgraded)
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(error) bool { return false }
	}
}
