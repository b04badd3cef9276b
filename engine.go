package blogauth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/blogauth/internal/flows"
	"github.com/MrEthical07/blogauth/internal/stores"
	"github.com/MrEthical07/blogauth/internal/username"
	"github.com/MrEthical07/blogauth/jwt"
	"github.com/MrEthical07/blogauth/password"
)

// Engine runs the signup, signin, refresh and password-reset flows. It is
// produced by [Builder.Build] and safe for concurrent use.
type Engine struct {
	config    Config
	secrets   *stores.SecretStore
	pending   *stores.PendingSignupStore
	tickets   *stores.ResetTicketStore
	repo      IdentityRepository
	notifier  Notifier
	codec     *password.Codec
	access    *jwt.Manager
	refresh   *jwt.Manager
	usernames username.Policy
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *slog.Logger
	flows     internalflows.Service
	now       func() time.Time
}

// Close flushes pending audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	var m *Metrics
	if e != nil {
		m = e.metrics
	}
	return m.Snapshot()
}

// Ping checks the secret store. Used by health probes.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.secrets == nil {
		return ErrEngineNotReady
	}
	if err := e.secrets.Ping(ctx); err != nil {
		return wrapCause(ErrServerError, err)
	}
	return nil
}

// ValidateAccess verifies an access token and returns its claims. No store is
// consulted. Every failure is ErrUnauthorized.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*jwt.Claims, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	claims, err := e.flows.Validate(tokenStr)
	e.metrics.Observe(MetricValidateLatency, time.Since(start))
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, err
	}
	return claims, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, args ...any) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Warn(msg, args...)
}

// hashPassword is the single entry point for new hashes so hashing latency is
// measured in one place.
func (e *Engine) hashPassword(plain string) (string, error) {
	start := time.Now()
	hash, err := e.codec.Hash(plain)
	e.metrics.Observe(MetricHashLatency, time.Since(start))
	return hash, err
}

func (e *Engine) emailExists(ctx context.Context, email string) (bool, error) {
	_, err := e.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case isIdentityNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func (e *Engine) flowDeps() internalflows.Deps {
	return internalflows.Deps{
		Signup:        e.signupFlowDeps(),
		Login:         e.loginFlowDeps(),
		PasswordReset: e.passwordResetFlowDeps(),
		Refresh:       e.refreshFlowDeps(),
		Validate: internalflows.ValidateDeps{
			ParseAccess:  e.access.Parse,
			Unauthorized: ErrUnauthorized,
		},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
