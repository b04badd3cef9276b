package blogauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/blogauth/internal"
	internalflows "github.com/MrEthical07/blogauth/internal/flows"
	"github.com/MrEthical07/blogauth/internal/stores"
)

// RequestPasswordReset mails a single-use reset link to email. The token in
// the link is opaque and unrelated to the signup OTP.
//
// Errors: ErrInvalidInput (empty or malformed email), ErrUserNotFound,
// ErrNotificationFailed, ErrServerError.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) (Result, error) {
	if e == nil || !e.flows.Initialized() {
		return Result{}, ErrEngineNotReady
	}
	if err := e.flows.RequestPasswordReset(ctx, normalizeEmail(email)); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK, Message: MessageResetLinkSent}, nil
}

// CompletePasswordReset replaces the password of the account bound to token.
// The ticket is consumed only once the new hash is stored.
//
// Errors: ErrResetTokenExpired, ErrInvalidInput, ErrServerError.
func (e *Engine) CompletePasswordReset(ctx context.Context, token, newPassword string) (Result, error) {
	if e == nil || !e.flows.Initialized() {
		return Result{}, ErrEngineNotReady
	}
	if err := e.flows.CompletePasswordReset(ctx, token, newPassword); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK, Message: MessagePasswordChanged}, nil
}

func (e *Engine) passwordResetFlowDeps() internalflows.PasswordResetDeps {
	return internalflows.PasswordResetDeps{
		TicketTTL: e.config.PasswordReset.TicketTTL,
		Now:       func() time.Time { return e.now() },

		CheckEmail:    checkEmail,
		EmailExists:   e.emailExists,
		GenerateToken: internal.NewResetToken,
		HashToken:     internal.HashToken,
		SendResetLink: func(ctx context.Context, email, token string) error {
			if err := e.notifier.SendResetLink(ctx, email, token); err != nil {
				return fmt.Errorf("%w: %w", errNotify, err)
			}
			return nil
		},

		SaveTicket: func(ctx context.Context, tokenHash [32]byte, t internalflows.PasswordResetTicket, ttl time.Duration) error {
			return e.tickets.Save(ctx, tokenHash, &stores.ResetTicket{Email: t.Email, IssuedAt: t.IssuedAt}, ttl)
		},
		GetTicket: func(ctx context.Context, tokenHash [32]byte) (internalflows.PasswordResetTicket, error) {
			t, err := e.tickets.Get(ctx, tokenHash)
			if err != nil {
				return internalflows.PasswordResetTicket{}, err
			}
			return internalflows.PasswordResetTicket{Email: t.Email, IssuedAt: t.IssuedAt}, nil
		},
		DeleteTicket: e.tickets.Delete,
		IsTicketNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrResetTicketNotFound)
		},

		HashPassword:   e.hashPassword,
		IsHashPolicy:   isPasswordPolicyError,
		UpdatePassword: e.repo.UpdatePassword,

		Warn: e.warn,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.PasswordResetMetrics{
			PasswordResetRequest:        int(MetricPasswordResetRequest),
			PasswordResetConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
			PasswordResetConfirmFailure: int(MetricPasswordResetConfirmFailure),
			NotificationFailure:         int(MetricNotificationFailure),
		},
		Events: internalflows.PasswordResetEvents{
			PasswordResetRequest: auditEventPasswordResetRequest,
			PasswordResetConfirm: auditEventPasswordResetConfirm,
			PasswordResetReplay:  auditEventPasswordResetReplay,
			NotificationFailed:   auditEventNotificationFailed,
		},
		Errors: internalflows.PasswordResetErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidInput:       ErrInvalidInput,
			UserNotFound:       ErrUserNotFound,
			ServerError:        ErrServerError,
			NotificationFailed: ErrNotificationFailed,
			TokenExpired:       ErrResetTokenExpired,
		},
	}
}
