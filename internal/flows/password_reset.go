package flows

import (
	"context"
	"time"
)

type PasswordResetTicket struct {
	Email    string
	IssuedAt int64
}

type PasswordResetMetrics struct {
	PasswordResetRequest        int
	PasswordResetConfirmSuccess int
	PasswordResetConfirmFailure int
	NotificationFailure         int
}

type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetConfirm string
	PasswordResetReplay  string
	NotificationFailed   string
}

type PasswordResetErrors struct {
	EngineNotReady     error
	InvalidInput       error
	UserNotFound       error
	ServerError        error
	NotificationFailed error
	TokenExpired       error
}

type PasswordResetDeps struct {
	TicketTTL time.Duration
	Now       func() time.Time

	CheckEmail    func(string) error
	EmailExists   func(context.Context, string) (bool, error)
	GenerateToken func() (string, error)
	HashToken     func(string) [32]byte
	SendResetLink func(context.Context, string, string) error

	SaveTicket       func(context.Context, [32]byte, PasswordResetTicket, time.Duration) error
	GetTicket        func(context.Context, [32]byte) (PasswordResetTicket, error)
	DeleteTicket     func(context.Context, [32]byte) error
	IsTicketNotFound func(error) bool

	HashPassword   func(string) (string, error)
	IsHashPolicy   func(error) bool
	UpdatePassword func(context.Context, string, string) error

	Warn      func(string, ...any)
	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunRequestPasswordReset issues a single-use reset ticket for email and
// mails the link carrying its token.
func RunRequestPasswordReset(ctx context.Context, email string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.EmailExists == nil || deps.GenerateToken == nil || deps.HashToken == nil || deps.SaveTicket == nil || deps.SendResetLink == nil {
		return deps.Errors.EngineNotReady
	}
	if email == "" || deps.CheckEmail(email) != nil {
		return deps.Errors.InvalidInput
	}

	exists, err := deps.EmailExists(ctx, email)
	if err != nil {
		return wrap(deps.Errors.ServerError, err)
	}
	if !exists {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", deps.Errors.UserNotFound, func() map[string]string {
			return map[string]string{"email": email}
		})
		return deps.Errors.UserNotFound
	}

	token, err := deps.GenerateToken()
	if err != nil {
		return wrap(deps.Errors.ServerError, err)
	}

	ticket := PasswordResetTicket{Email: email, IssuedAt: deps.Now().Unix()}
	if err := deps.SaveTicket(ctx, deps.HashToken(token), ticket, deps.TicketTTL); err != nil {
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", err, func() map[string]string {
			return map[string]string{"email": email}
		})
		return wrap(deps.Errors.ServerError, err)
	}

	if err := deps.SendResetLink(ctx, email, token); err != nil {
		deps.MetricInc(deps.Metrics.NotificationFailure)
		deps.EmitAudit(ctx, deps.Events.NotificationFailed, false, "", err, func() map[string]string {
			return map[string]string{"email": email, "kind": "reset_link"}
		})
		return wrap(deps.Errors.NotificationFailed, err)
	}

	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, "", nil, func() map[string]string {
		return map[string]string{"email": email}
	})
	return nil
}

// RunCompletePasswordReset sets a new password for the account bound to
// token. The ticket is deleted only after the password update succeeded.
func RunCompletePasswordReset(ctx context.Context, token, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.HashToken == nil || deps.GetTicket == nil || deps.DeleteTicket == nil || deps.HashPassword == nil || deps.UpdatePassword == nil {
		return deps.Errors.EngineNotReady
	}
	if token == "" {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return deps.Errors.TokenExpired
	}
	if newPassword == "" {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		return deps.Errors.InvalidInput
	}

	tokenHash := deps.HashToken(token)
	ticket, err := deps.GetTicket(ctx, tokenHash)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		if deps.IsTicketNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.PasswordResetReplay, false, "", deps.Errors.TokenExpired, nil)
			return deps.Errors.TokenExpired
		}
		return wrap(deps.Errors.ServerError, err)
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		if deps.IsHashPolicy(err) {
			return wrap(deps.Errors.InvalidInput, err)
		}
		return wrap(deps.Errors.ServerError, err)
	}

	if err := deps.UpdatePassword(ctx, ticket.Email, hash); err != nil {
		deps.MetricInc(deps.Metrics.PasswordResetConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, "", err, func() map[string]string {
			return map[string]string{"email": ticket.Email, "reason": "update_hash_failed"}
		})
		return wrap(deps.Errors.ServerError, err)
	}

	if err := deps.DeleteTicket(ctx, tokenHash); err != nil {
		deps.Warn("blogauth: reset ticket cleanup failed", "email", ticket.Email, "error", err)
	}

	deps.MetricInc(deps.Metrics.PasswordResetConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, "", nil, func() map[string]string {
		return map[string]string{"email": ticket.Email}
	})
	return nil
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
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
	if deps.IsTicketNotFound == nil {
		deps.IsTicketNotFound = func(error) bool { return false }
	}
	if deps.IsHashPolicy == nil {
		deps.IsHashPolicy = func(error) bool { return false }
	}
}
