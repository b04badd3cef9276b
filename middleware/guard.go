package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/blogauth/jwt"
)

// AccessValidator verifies an access token and returns its claims.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, token string) (*jwt.Claims, error)
}

type claimsContextKey struct{}

// unauthorizedBody matches the error envelope of the auth HTTP API.
const unauthorizedBody = `{"error":"UNAUTHORIZED"}` + "\n"

func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// Guard admits only requests carrying a valid bearer access token and exposes
// its claims through ClaimsFromContext.
func Guard(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := resolve(r, validator)
			if claims == nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(unauthorizedBody))
				return
			}
			next.ServeHTTP(w, withClaims(r, claims))
		})
	}
}

// Optional is Guard for public routes: invalid or missing tokens fall
// through without claims.
func Optional(validator AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims := resolve(r, validator); claims != nil {
				r = withClaims(r, claims)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolve(r *http.Request, validator AccessValidator) *jwt.Claims {
	if validator == nil {
		return nil
	}
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil
	}
	claims, err := validator.ValidateAccess(r.Context(), token)
	if err != nil {
		return nil
	}
	return claims
}

func withClaims(r *http.Request, claims *jwt.Claims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
