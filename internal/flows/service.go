package flows

import (
	"context"

	"github.com/MrEthical07/blogauth/jwt"
)

// Service binds Deps to the Run* functions so the engine can hold one value.
type Service struct {
	deps Deps
}

// New copies deps; later changes to the caller's struct are not observed.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized is false for the zero Service.
func (s Service) Initialized() bool {
	return s.deps.Validate.ParseAccess != nil
}

func (s Service) Signup(ctx context.Context, email, name, password string) (string, error) {
	return RunSignup(ctx, email, name, password, s.deps.Signup)
}

func (s Service) VerifyOTP(ctx context.Context, otp, email string) (string, error) {
	return RunVerifyOTP(ctx, otp, email, s.deps.Signup)
}

func (s Service) Signin(ctx context.Context, identifier, password string) (TokenPair, error) {
	return RunSignin(ctx, identifier, password, s.deps.Login)
}

func (s Service) RequestPasswordReset(ctx context.Context, email string) error {
	return RunRequestPasswordReset(ctx, email, s.deps.PasswordReset)
}

func (s Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	return RunCompletePasswordReset(ctx, token, newPassword, s.deps.PasswordReset)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Validate(tokenStr string) (*jwt.Claims, error) {
	return RunValidate(tokenStr, s.deps.Validate)
}
