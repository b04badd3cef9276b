package flows

import "github.com/MrEthical07/blogauth/jwt"

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	ParseAccess  func(string) (*jwt.Claims, error)
	Unauthorized error
}

// RunValidate verifies an access token. Validation is stateless: the
// signature and expiry are the only checks.
func RunValidate(tokenStr string, deps ValidateDeps) (*jwt.Claims, error) {
	if tokenStr == "" || deps.ParseAccess == nil {
		return nil, deps.Unauthorized
	}
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		return nil, wrap(deps.Unauthorized, err)
	}
	return claims, nil
}
