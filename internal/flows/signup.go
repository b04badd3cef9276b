package flows

import (
	"context"
	"crypto/subtle"
	"time"
)

// PendingSignup mirrors the staged signup record held in the secret store.
type PendingSignup struct {
	Email        string
	Name         string
	PasswordHash string
	OTP          string
	CreatedAt    int64
}

// NewUser is the durable account created once the OTP matches.
type NewUser struct {
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type SignupMetrics struct {
	SignupRequested       int
	SignupDuplicate       int
	SignupFailure         int
	NotificationFailure   int
	OTPVerified           int
	OTPMismatch           int
	OTPMissing            int
	AccountCreated        int
	AccountCreationFailed int
}

type SignupEvents struct {
	SignupRequested       string
	SignupDuplicate       string
	OTPVerified           string
	OTPMismatch           string
	OTPMissing            string
	AccountCreated        string
	AccountCreationFailed string
	NotificationFailed    string
}

type SignupErrors struct {
	EngineNotReady      error
	InvalidInput        error
	UserExists          error
	ServerError         error
	NotificationFailed  error
	OTPNotFound         error
	OTPIncorrect        error
	UserCreationFailed  error
	UsernameUnavailable error
}

type SignupDeps struct {
	PendingTTL  time.Duration
	OTPDigits   int
	DefaultRole string
	Now         func() time.Time

	CheckEmail   func(string) error
	EmailExists  func(context.Context, string) (bool, error)
	HashPassword func(string) (string, error)
	IsHashPolicy func(error) bool
	GenerateOTP  func(int) (string, error)
	SendOTP      func(context.Context, string, string) error

	SavePending       func(context.Context, PendingSignup, time.Duration) error
	GetPending        func(context.Context, string) (PendingSignup, error)
	DeletePending     func(context.Context, string) error
	IsPendingNotFound func(error) bool

	ResolveUsername     func(context.Context, string) (string, error)
	IsUsernameExhausted func(error) bool
	CreateUser          func(context.Context, NewUser) (string, error)

	Warn      func(string, ...any)
	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics SignupMetrics
	Events  SignupEvents
	Errors  SignupErrors
}

// RunSignup stages a signup behind an emailed OTP and returns the email as
// the correlation handle for RunVerifyOTP.
func RunSignup(ctx context.Context, email, name, password string, deps SignupDeps) (string, error) {
	normalizeSignupDeps(&deps)

	if deps.EmailExists == nil || deps.HashPassword == nil || deps.GenerateOTP == nil || deps.SendOTP == nil || deps.SavePending == nil {
		return "", deps.Errors.EngineNotReady
	}
	if email == "" || name == "" || password == "" || deps.CheckEmail(email) != nil {
		deps.MetricInc(deps.Metrics.SignupFailure)
		return "", deps.Errors.InvalidInput
	}

	exists, err := deps.EmailExists(ctx, email)
	if err != nil {
		deps.MetricInc(deps.Metrics.SignupFailure)
		return "", wrap(deps.Errors.ServerError, err)
	}
	if exists {
		deps.MetricInc(deps.Metrics.SignupDuplicate)
		deps.EmitAudit(ctx, deps.Events.SignupDuplicate, false, "", deps.Errors.UserExists, func() map[string]string {
			return map[string]string{"email": email}
		})
		return "", deps.Errors.UserExists
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		deps.MetricInc(deps.Metrics.SignupFailure)
		if deps.IsHashPolicy(err) {
			return "", wrap(deps.Errors.InvalidInput, err)
		}
		return "", wrap(deps.Errors.ServerError, err)
	}

	otp, err := deps.GenerateOTP(deps.OTPDigits)
	if err != nil {
		deps.MetricInc(deps.Metrics.SignupFailure)
		return "", wrap(deps.Errors.ServerError, err)
	}

	if err := deps.SendOTP(ctx, email, otp); err != nil {
		deps.MetricInc(deps.Metrics.NotificationFailure)
		deps.EmitAudit(ctx, deps.Events.NotificationFailed, false, "", err, func() map[string]string {
			return map[string]string{"email": email, "kind": "otp"}
		})
		return "", wrap(deps.Errors.NotificationFailed, err)
	}

	pending := PendingSignup{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		OTP:          otp,
		CreatedAt:    deps.Now().Unix(),
	}
	if err := deps.SavePending(ctx, pending, deps.PendingTTL); err != nil {
		deps.MetricInc(deps.Metrics.SignupFailure)
		deps.EmitAudit(ctx, deps.Events.SignupRequested, false, "", err, func() map[string]string {
			return map[string]string{"email": email}
		})
		return "", wrap(deps.Errors.ServerError, err)
	}

	deps.MetricInc(deps.Metrics.SignupRequested)
	deps.EmitAudit(ctx, deps.Events.SignupRequested, true, "", nil, func() map[string]string {
		return map[string]string{"email": email}
	})
	return email, nil
}

// RunVerifyOTP promotes a pending signup to a durable user when otp matches.
// The pending record is removed only after the user exists, so a failed
// create can be retried until the record expires.
func RunVerifyOTP(ctx context.Context, otp, email string, deps SignupDeps) (string, error) {
	normalizeSignupDeps(&deps)

	if deps.GetPending == nil || deps.DeletePending == nil || deps.ResolveUsername == nil || deps.CreateUser == nil {
		return "", deps.Errors.EngineNotReady
	}

	pending, err := deps.GetPending(ctx, email)
	if err != nil {
		if deps.IsPendingNotFound(err) {
			deps.MetricInc(deps.Metrics.OTPMissing)
			deps.EmitAudit(ctx, deps.Events.OTPMissing, false, "", deps.Errors.OTPNotFound, func() map[string]string {
				return map[string]string{"email": email}
			})
			return "", deps.Errors.OTPNotFound
		}
		return "", wrap(deps.Errors.ServerError, err)
	}

	if subtle.ConstantTimeCompare([]byte(pending.OTP), []byte(otp)) != 1 {
		deps.MetricInc(deps.Metrics.OTPMismatch)
		deps.EmitAudit(ctx, deps.Events.OTPMismatch, false, "", deps.Errors.OTPIncorrect, func() map[string]string {
			return map[string]string{"email": email}
		})
		return "", deps.Errors.OTPIncorrect
	}
	deps.MetricInc(deps.Metrics.OTPVerified)
	deps.EmitAudit(ctx, deps.Events.OTPVerified, true, "", nil, func() map[string]string {
		return map[string]string{"email": email}
	})

	username, err := deps.ResolveUsername(ctx, pending.Name)
	if err != nil {
		deps.MetricInc(deps.Metrics.AccountCreationFailed)
		if deps.IsUsernameExhausted(err) {
			return "", wrap(deps.Errors.UsernameUnavailable, err)
		}
		return "", wrap(deps.Errors.ServerError, err)
	}

	userID, err := deps.CreateUser(ctx, NewUser{
		Username:     username,
		Name:         pending.Name,
		Email:        pending.Email,
		PasswordHash: pending.PasswordHash,
		Role:         deps.DefaultRole,
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.AccountCreationFailed)
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailed, false, "", err, func() map[string]string {
			return map[string]string{"email": email, "username": username}
		})
		return "", wrap(deps.Errors.UserCreationFailed, err)
	}

	if err := deps.DeletePending(ctx, email); err != nil {
		deps.Warn("blogauth: pending signup cleanup failed", "email", email, "error", err)
	}

	deps.MetricInc(deps.Metrics.AccountCreated)
	deps.EmitAudit(ctx, deps.Events.AccountCreated, true, userID, nil, func() map[string]string {
		return map[string]string{"username": username}
	})
	return userID, nil
}

func normalizeSignupDeps(deps *SignupDeps) {
	if deps.CheckEmail == nil {
		deps.CheckEmail = acceptAnyEmail
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.IsHashPolicy == nil {
		deps.IsHashPolicy = func(error) bool { return false }
	}
	if deps.IsPendingNotFound == nil {
		deps.IsPendingNotFound = func(error) bool { return false }
	}
	if deps.IsUsernameExhausted == nil {
		deps.IsUsernameExhausted = func(error) bool { return false }
	}
}
