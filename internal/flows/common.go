package flows

import (
	"context"
	"fmt"
)

// EmitAuditFunc records one audit event. metadata is evaluated lazily so
// flows do not allocate maps when auditing is disabled.
type EmitAuditFunc func(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string)

// TokenPair is the access/refresh token pair produced by a successful signin.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(string, ...any) {}

func acceptAnyEmail(string) error { return nil }

// wrap keeps both the flow outcome and the underlying cause reachable through
// errors.Is.
func wrap(outcome, cause error) error {
	if cause == nil {
		return outcome
	}
	return fmt.Errorf("%w: %w", outcome, cause)
}
