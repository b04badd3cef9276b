package blogauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/blogauth/jwt"
	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestSigninByUsernameAndEmail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	user := env.register(t, "hana@example.com", "Hana", "pw-123456")
	ctx := context.Background()

	for _, identifier := range []string{user.Username, user.Email, "  HANA@example.com "} {
		pair, err := env.engine.Signin(ctx, identifier, "pw-123456")
		if err != nil {
			t.Fatalf("Signin(%q) failed: %v", identifier, err)
		}
		if pair.AccessToken == "" || pair.RefreshToken == "" {
			t.Fatalf("expected both tokens, got %+v", pair)
		}

		claims, err := env.engine.ValidateAccess(ctx, pair.AccessToken)
		if err != nil {
			t.Fatalf("ValidateAccess failed: %v", err)
		}
		if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != "user" {
			t.Fatalf("unexpected claims %+v", claims)
		}
	}

	if got := env.engine.MetricsSnapshot().Counters[MetricLoginSuccess]; got != 3 {
		t.Fatalf("expected 3 login successes, got %d", got)
	}
}

func TestSigninUnknownUser(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.Signin(context.Background(), "ghost", "pw-123456")
	assertKind(t, err, ErrUserNotFound)
}

func TestSigninWrongPassword(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "ivan@example.com", "Ivan", "pw-123456")

	_, err := env.engine.Signin(context.Background(), "ivan", "pw-1234567")
	assertKind(t, err, ErrPasswordIncorrect)
	if got := env.engine.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("expected 1 login failure, got %d", got)
	}
}

func TestSigninOverlongPasswordIsIncorrect(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "ann@example.com", "Ann", "pw-123456")

	_, err := env.engine.Signin(context.Background(), "ann@example.com", strings.Repeat("x", 2000))
	assertKind(t, err, ErrPasswordIncorrect)
	if KindOf(err) != KindUnauthorized {
		t.Fatalf("expected unauthorized, got %s", KindOf(err))
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricLoginFailure]; got != 1 {
		t.Fatalf("expected 1 login failure, got %d", got)
	}
}

func TestSigninRepositoryFailureIsServerError(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.repo.findErr = errors.New("connection reset")

	_, err := env.engine.Signin(context.Background(), "anyone", "pw")
	assertKind(t, err, ErrServerError)
}

func TestSigninCorruptStoredHashIsServerError(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.repo.add(User{Username: "jack", Email: "jack@example.com", PasswordHash: "plaintext?", Role: "user"})

	_, err := env.engine.Signin(context.Background(), "jack", "pw")
	assertKind(t, err, ErrServerError)
}

func TestSigninUpgradesLegacyBcryptHash(t *testing.T) {
	env := newTestEnv(t, testConfig())
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	env.repo.add(User{Username: "kate", Email: "kate@example.com", PasswordHash: string(legacy), Role: "editor"})

	pair, err := env.engine.Signin(context.Background(), "kate", "old-secret")
	if err != nil {
		t.Fatalf("Signin with legacy hash failed: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("expected access token")
	}

	upgraded := env.repo.hashOf("kate@example.com")
	if !strings.HasPrefix(upgraded, "$argon2id$") {
		t.Fatalf("expected hash upgraded to argon2id, got %q", upgraded)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricPasswordUpgraded]; got != 1 {
		t.Fatalf("expected 1 upgrade, got %d", got)
	}

	if _, err := env.engine.Signin(context.Background(), "kate", "old-secret"); err != nil {
		t.Fatalf("Signin after upgrade failed: %v", err)
	}
}

func TestSigninUpgradeFailureDoesNotFailLogin(t *testing.T) {
	env := newTestEnv(t, testConfig())
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	env.repo.add(User{Username: "liam", Email: "liam@example.com", PasswordHash: string(legacy), Role: "user"})
	env.repo.updateErr = errors.New("read-only replica")

	if _, err := env.engine.Signin(context.Background(), "liam", "old-secret"); err != nil {
		t.Fatalf("Signin must succeed when the upgrade cannot be stored: %v", err)
	}
	if env.repo.hashOf("liam@example.com") != string(legacy) {
		t.Fatal("hash must be unchanged after a failed upgrade")
	}
}

func TestSigninLegacyDisabledRejectsBcrypt(t *testing.T) {
	cfg := testConfig()
	cfg.Password.LegacyBcrypt = false
	env := newTestEnv(t, cfg)
	legacy, _ := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.DefaultCost)
	env.repo.add(User{Username: "mia", Email: "mia@example.com", PasswordHash: string(legacy), Role: "user"})

	_, err := env.engine.Signin(context.Background(), "mia", "old-secret")
	assertKind(t, err, ErrServerError)
}

func TestRefreshIssuesAccessForSameIdentity(t *testing.T) {
	env := newTestEnv(t, testConfig())
	user := env.register(t, "nina@example.com", "Nina", "pw-123456")
	ctx := context.Background()

	pair, err := env.engine.Signin(ctx, "nina", "pw-123456")
	if err != nil {
		t.Fatalf("Signin failed: %v", err)
	}

	access, err := env.engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	claims, err := env.engine.ValidateAccess(ctx, access)
	if err != nil {
		t.Fatalf("refreshed access token invalid: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != user.Role {
		t.Fatalf("refreshed claims differ: %+v", claims)
	}

	// refresh tokens are not rotated: the same token keeps working
	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("second Refresh with the same token failed: %v", err)
	}
}

func TestRefreshEmptyTokenIsNoToken(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.engine.Refresh(context.Background(), "")
	assertKind(t, err, ErrNoToken)
}

func TestRefreshRejectsInvalidTokens(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "omar@example.com", "Omar", "pw-123456")
	ctx := context.Background()

	pair, err := env.engine.Signin(ctx, "omar", "pw-123456")
	if err != nil {
		t.Fatalf("Signin failed: %v", err)
	}

	expired := signRefreshClaims(t, jwt.Claims{
		UserID: "u1",
		Role:   "user",
		Email:  "omar@example.com",
		RegisteredClaims: gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  gojwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			Issuer:    "blogauth",
		},
	})

	parts := strings.Split(pair.RefreshToken, ".")
	flip := byte('A')
	if parts[1][5] == 'A' {
		flip = 'B'
	}
	parts[1] = parts[1][:5] + string(flip) + parts[1][6:]
	tampered := strings.Join(parts, ".")

	for name, token := range map[string]string{
		"garbage":         "not-a-jwt",
		"access as token": pair.AccessToken,
		"expired":         expired,
		"tampered":        tampered,
	} {
		_, err := env.engine.Refresh(ctx, token)
		if !errors.Is(err, ErrRefreshTokenExpired) || KindOf(err) != KindNoContent {
			t.Fatalf("%s: expected TOKEN_EXPIRED/no_content, got %v", name, err)
		}
	}
}

func TestValidateAccessRejectsRefreshToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, "pia@example.com", "Pia", "pw-123456")
	ctx := context.Background()

	pair, err := env.engine.Signin(ctx, "pia", "pw-123456")
	if err != nil {
		t.Fatalf("Signin failed: %v", err)
	}

	for _, token := range []string{"", "abc.def.ghi", pair.RefreshToken} {
		_, err := env.engine.ValidateAccess(ctx, token)
		assertKind(t, err, ErrUnauthorized)
	}
}

func signRefreshClaims(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(testRefreshSecret)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return token
}
