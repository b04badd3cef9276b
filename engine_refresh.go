package blogauth

import (
	"context"

	internalflows "github.com/MrEthical07/blogauth/internal/flows"
	"github.com/MrEthical07/blogauth/jwt"
)

// Refresh verifies refreshToken and returns a new access token for the same
// identity. The refresh token stays valid until its own expiry.
//
// Errors: ErrNoToken for empty input, ErrRefreshTokenExpired for any
// verification failure.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if e == nil || !e.flows.Initialized() {
		return "", ErrEngineNotReady
	}
	return e.flows.Refresh(ctx, refreshToken)
}

func (e *Engine) refreshFlowDeps() internalflows.RefreshDeps {
	return internalflows.RefreshDeps{
		ParseRefresh: func(token string) (jwt.Identity, error) {
			claims, err := e.refresh.Parse(token)
			if err != nil {
				return jwt.Identity{}, err
			}
			return claims.Identity(), nil
		},
		IssueAccess: e.access.Issue,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.RefreshMetrics{
			RefreshSuccess: int(MetricRefreshSuccess),
			RefreshFailure: int(MetricRefreshFailure),
		},
		Events: internalflows.RefreshEvents{
			RefreshSuccess: auditEventRefreshSuccess,
			RefreshInvalid: auditEventRefreshInvalid,
		},
		Errors: internalflows.RefreshErrors{
			EngineNotReady: ErrEngineNotReady,
			NoToken:        ErrNoToken,
			TokenExpired:   ErrRefreshTokenExpired,
			ServerError:    ErrServerError,
		},
	}
}
