package blogauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/blogauth/internal"
	internalflows "github.com/MrEthical07/blogauth/internal/flows"
	"github.com/MrEthical07/blogauth/internal/stores"
	"github.com/MrEthical07/blogauth/internal/username"
	"github.com/MrEthical07/blogauth/password"
)

// Signup stages a new account behind an emailed OTP and returns the email
// the OTP was sent to. No durable user exists until VerifyOTP succeeds.
//
// Errors: ErrUserExists, ErrInvalidInput (empty field or malformed email),
// ErrNotificationFailed, ErrServerError.
func (e *Engine) Signup(ctx context.Context, req SignupRequest) (string, error) {
	if e == nil || !e.flows.Initialized() {
		return "", ErrEngineNotReady
	}
	return e.flows.Signup(ctx, normalizeEmail(req.Email), strings.TrimSpace(req.Name), req.Password)
}

// VerifyOTP promotes the pending signup for email to a durable user when otp
// matches the code that was sent. The comparison is byte-exact.
//
// Errors: ErrOTPNotFound, ErrOTPIncorrect, ErrUserCreationFailed,
// ErrUsernameUnavailable, ErrServerError.
func (e *Engine) VerifyOTP(ctx context.Context, otp, email string) (Result, error) {
	if e == nil || !e.flows.Initialized() {
		return Result{}, ErrEngineNotReady
	}
	if _, err := e.flows.VerifyOTP(ctx, otp, normalizeEmail(email)); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK, Message: MessageUserCreated}, nil
}

func (e *Engine) signupFlowDeps() internalflows.SignupDeps {
	cfg := e.config

	return internalflows.SignupDeps{
		PendingTTL:  cfg.Signup.PendingTTL,
		OTPDigits:   cfg.Signup.OTPDigits,
		DefaultRole: cfg.Signup.DefaultRole,
		Now:         func() time.Time { return e.now() },

		CheckEmail:   checkEmail,
		EmailExists:  e.emailExists,
		HashPassword: e.hashPassword,
		IsHashPolicy: isPasswordPolicyError,
		GenerateOTP:  internal.NewOTP,
		SendOTP: func(ctx context.Context, email, code string) error {
			if err := e.notifier.SendOTP(ctx, email, code); err != nil {
				return fmt.Errorf("%w: %w", errNotify, err)
			}
			return nil
		},

		SavePending: func(ctx context.Context, p internalflows.PendingSignup, ttl time.Duration) error {
			return e.pending.Save(ctx, &stores.PendingSignup{
				Email:        p.Email,
				Name:         p.Name,
				PasswordHash: p.PasswordHash,
				OTP:          p.OTP,
				CreatedAt:    p.CreatedAt,
			}, ttl)
		},
		GetPending: func(ctx context.Context, email string) (internalflows.PendingSignup, error) {
			p, err := e.pending.Get(ctx, email)
			if err != nil {
				return internalflows.PendingSignup{}, err
			}
			return internalflows.PendingSignup{
				Email:        p.Email,
				Name:         p.Name,
				PasswordHash: p.PasswordHash,
				OTP:          p.OTP,
				CreatedAt:    p.CreatedAt,
			}, nil
		},
		DeletePending: e.pending.Delete,
		IsPendingNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrPendingSignupNotFound)
		},

		ResolveUsername: func(ctx context.Context, name string) (string, error) {
			return e.usernames.Resolve(ctx, name, e.repo.UsernameExists)
		},
		IsUsernameExhausted: func(err error) bool {
			return errors.Is(err, username.ErrExhausted)
		},
		CreateUser: func(ctx context.Context, u internalflows.NewUser) (string, error) {
			created, err := e.repo.Create(ctx, CreateUserInput{
				Username:     u.Username,
				Name:         u.Name,
				Email:        u.Email,
				PasswordHash: u.PasswordHash,
				Role:         u.Role,
			})
			if err != nil {
				return "", err
			}
			if created == nil {
				return "", errors.New("repository returned no user")
			}
			return created.ID, nil
		},

		Warn: e.warn,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.SignupMetrics{
			SignupRequested:       int(MetricSignupRequested),
			SignupDuplicate:       int(MetricSignupDuplicate),
			SignupFailure:         int(MetricSignupFailure),
			NotificationFailure:   int(MetricNotificationFailure),
			OTPVerified:           int(MetricOTPVerified),
			OTPMismatch:           int(MetricOTPMismatch),
			OTPMissing:            int(MetricOTPMissing),
			AccountCreated:        int(MetricAccountCreated),
			AccountCreationFailed: int(MetricAccountCreationFailed),
		},
		Events: internalflows.SignupEvents{
			SignupRequested:       auditEventSignupRequested,
			SignupDuplicate:       auditEventSignupDuplicate,
			OTPVerified:           auditEventOTPVerified,
			OTPMismatch:           auditEventOTPMismatch,
			OTPMissing:            auditEventOTPMissing,
			AccountCreated:        auditEventAccountCreated,
			AccountCreationFailed: auditEventAccountCreationFailed,
			NotificationFailed:    auditEventNotificationFailed,
		},
		Errors: internalflows.SignupErrors{
			EngineNotReady:      ErrEngineNotReady,
			InvalidInput:        ErrInvalidInput,
			UserExists:          ErrUserExists,
			ServerError:         ErrServerError,
			NotificationFailed:  ErrNotificationFailed,
			OTPNotFound:         ErrOTPNotFound,
			OTPIncorrect:        ErrOTPIncorrect,
			UserCreationFailed:  ErrUserCreationFailed,
			UsernameUnavailable: ErrUsernameUnavailable,
		},
	}
}

func isPasswordPolicyError(err error) bool {
	return errors.Is(err, password.ErrEmptyPassword) || errors.Is(err, password.ErrPasswordTooLong)
}
