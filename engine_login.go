package blogauth

import (
	"context"
	"strings"

	internalflows "github.com/MrEthical07/blogauth/internal/flows"
)

// Signin authenticates identifier, which may be a username or an email, and
// issues an access/refresh token pair. Nothing is stored server-side.
//
// Errors: ErrUserNotFound, ErrPasswordIncorrect, ErrInvalidInput,
// ErrServerError.
func (e *Engine) Signin(ctx context.Context, identifier, password string) (TokenPair, error) {
	if e == nil || !e.flows.Initialized() {
		return TokenPair{}, ErrEngineNotReady
	}
	pair, err := e.flows.Signin(ctx, strings.ToLower(strings.TrimSpace(identifier)), password)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	return internalflows.LoginDeps{
		UpgradeOnLogin: e.config.Password.UpgradeOnLogin,

		FindUser: func(ctx context.Context, identifier string) (internalflows.LoginUserRecord, error) {
			user, err := e.repo.FindOneByUsernameOrEmail(ctx, identifier)
			if err != nil {
				return internalflows.LoginUserRecord{}, err
			}
			if user == nil {
				return internalflows.LoginUserRecord{}, ErrIdentityNotFound
			}
			return internalflows.LoginUserRecord{
				UserID:       user.ID,
				Email:        user.Email,
				PasswordHash: user.PasswordHash,
				Role:         user.Role,
			}, nil
		},
		IsUserNotFound: isIdentityNotFound,
		VerifyPassword: e.codec.Verify,
		NeedsUpgrade:   e.codec.NeedsUpgrade,
		HashPassword:   e.hashPassword,
		UpdatePassword: e.repo.UpdatePassword,

		IssueAccess:  e.access.Issue,
		IssueRefresh: e.refresh.Issue,

		Warn: e.warn,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			PasswordUpgraded: int(MetricPasswordUpgraded),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:    ErrEngineNotReady,
			InvalidInput:      ErrInvalidInput,
			UserNotFound:      ErrUserNotFound,
			PasswordIncorrect: ErrPasswordIncorrect,
			ServerError:       ErrServerError,
		},
	}
}
