package flows

import (
	"context"

	"github.com/MrEthical07/blogauth/jwt"
)

type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
}

type RefreshEvents struct {
	RefreshSuccess string
	RefreshInvalid string
}

type RefreshErrors struct {
	EngineNotReady error
	NoToken        error
	TokenExpired   error
	ServerError    error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ParseRefresh func(string) (jwt.Identity, error)
	IssueAccess  func(jwt.Identity) (string, error)

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh verifies refreshToken and mints a new access token carrying the
// same identity. The refresh token itself is neither rotated nor revoked.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (string, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.ParseRefresh == nil || deps.IssueAccess == nil {
		return "", deps.Errors.EngineNotReady
	}

	if refreshToken == "" {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		return "", deps.Errors.NoToken
	}

	identity, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshInvalid, false, "", err, nil)
		return "", wrap(deps.Errors.TokenExpired, err)
	}

	access, err := deps.IssueAccess(identity)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		return "", wrap(deps.Errors.ServerError, err)
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, identity.UserID, nil, nil)
	return access, nil
}
