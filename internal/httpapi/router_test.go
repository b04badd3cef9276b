package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/MrEthical07/blogauth/jwt"
	"github.com/MrEthical07/blogauth/userstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mailbox struct {
	mu     sync.Mutex
	otps   map[string]string
	resets map[string]string
}

func newMailbox() *mailbox {
	return &mailbox{otps: map[string]string{}, resets: map[string]string{}}
}

func (m *mailbox) SendOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otps[email] = code
	return nil
}

func (m *mailbox) SendResetLink(_ context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = token
	return nil
}

func (m *mailbox) otp(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otps[email]
}

func (m *mailbox) reset(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets[email]
}

type testServer struct {
	router *Router
	mail   *mailbox
	mr     *miniredis.Miniredis
	reg    *prometheus.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := blogauth.DefaultConfig()
	cfg.JWT.Access.PrivateKey = []byte("access-secret-0123456789abcdefghijkl")
	cfg.JWT.Refresh.PrivateKey = []byte("refresh-secret-0123456789abcdefghijk")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	mail := newMailbox()
	engine, err := blogauth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityRepository(userstore.NewMemory()).
		WithNotifier(mail).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	reg := prometheus.NewRegistry()
	router, err := New(engine, Options{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		RefreshTTL: cfg.JWT.Refresh.TTL,
		Registerer: reg,
	})
	require.NoError(t, err)

	return &testServer{router: router, mail: mail, mr: mr, reg: reg}
}

func (s *testServer) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) signupAndVerify(t *testing.T, email, name, password string) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"email": email, "name": name, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)
	handle := decodeBody(t, rec)["email"]

	rec = s.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{"otp": s.mail.otp(handle), "email": handle})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, blogauth.MessageUserCreated, decodeBody(t, rec)["message"])
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func TestSignupVerifySigninMe(t *testing.T) {
	s := newTestServer(t)
	s.signupAndVerify(t, "Ada@Example.com", "Ada Lovelace", "analytical-engine")

	rec := s.do(t, http.MethodPost, "/auth/signin", map[string]string{"identifier": "adalovelace", "password": "analytical-engine"})
	require.Equal(t, http.StatusOK, rec.Code)

	access := decodeBody(t, rec)["accessToken"]
	require.NotEmpty(t, access)

	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)
	assert.NotContains(t, rec.Body.String(), cookie.Value)

	rec = s.do(t, http.MethodGet, "/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+access)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody(t, rec)
	assert.Equal(t, "ada@example.com", me["email"])
	assert.Equal(t, "user", me["role"])
	assert.NotEmpty(t, me["id"])
}

func TestMeRequiresBearer(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/auth/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"UNAUTHORIZED"}`, rec.Body.String())
}

func TestRefreshFromCookieAndBody(t *testing.T) {
	s := newTestServer(t)
	s.signupAndVerify(t, "ben@example.com", "Ben", "pw-123456")

	rec := s.do(t, http.MethodPost, "/auth/signin", map[string]string{"identifier": "ben@example.com", "password": "pw-123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)

	rec = s.do(t, http.MethodPost, "/auth/refresh-token", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["accessToken"])

	rec = s.do(t, http.MethodPost, "/auth/refresh-token", map[string]string{"refreshToken": cookie.Value})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["accessToken"])
}

func TestRefreshWithoutTokenIsNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/refresh-token", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, blogauth.ErrNoToken.Code, decodeBody(t, rec)["error"])
}

func TestRefreshInvalidTokenIsNoContentAndClearsCookie(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/refresh-token", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "garbage"})
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	cookie := refreshCookie(rec)
	require.NotNil(t, cookie)
	assert.Negative(t, cookie.MaxAge)
}

func TestSigninErrors(t *testing.T) {
	s := newTestServer(t)
	s.signupAndVerify(t, "cleo@example.com", "Cleo", "pw-123456")

	tests := []struct {
		name       string
		identifier string
		password   string
		status     int
		code       string
	}{
		{"unknown user", "nobody", "pw-123456", http.StatusNotFound, blogauth.ErrUserNotFound.Code},
		{"wrong password", "cleo", "pw-wrong", http.StatusUnauthorized, blogauth.ErrPasswordIncorrect.Code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/auth/signin", map[string]string{"identifier": tt.identifier, "password": tt.password})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeBody(t, rec)["error"])
			assert.Nil(t, refreshCookie(rec))
		})
	}
}

func TestSignupConflictAndBadInput(t *testing.T) {
	s := newTestServer(t)
	s.signupAndVerify(t, "dora@example.com", "Dora", "pw-123456")

	rec := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"email": "dora@example.com", "name": "Dora", "password": "pw"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, blogauth.ErrUserExists.Code, decodeBody(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/auth/signup", map[string]string{"email": "", "name": "X", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/signup", map[string]string{"email": "dora", "name": "X", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, blogauth.ErrInvalidInput.Code, decodeBody(t, rec)["error"])

	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{not json"))
	raw := httptest.NewRecorder()
	s.router.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
	assert.Equal(t, blogauth.ErrInvalidInput.Code, decodeBody(t, raw)["error"])
}

func TestVerifyOTPErrors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{"otp": "123456", "email": "none@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, blogauth.ErrOTPNotFound.Code, decodeBody(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/auth/signup", map[string]string{"email": "eve@example.com", "name": "Eve", "password": "pw-123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	wrong := "000000"
	if s.mail.otp("eve@example.com") == wrong {
		wrong = "111111"
	}
	rec = s.do(t, http.MethodPost, "/auth/verify-otp", map[string]string{"otp": wrong, "email": "eve@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, blogauth.ErrOTPIncorrect.Code, decodeBody(t, rec)["error"])
}

func TestPasswordResetRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.signupAndVerify(t, "finn@example.com", "Finn", "old-password")

	rec := s.do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "finn@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, blogauth.MessageResetLinkSent, decodeBody(t, rec)["message"])

	token := s.mail.reset("finn@example.com")
	require.NotEmpty(t, token)

	rec = s.do(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": token, "password": "new-password"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, blogauth.MessagePasswordChanged, decodeBody(t, rec)["message"])

	rec = s.do(t, http.MethodPost, "/auth/reset-password", map[string]string{"token": token, "password": "again"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, blogauth.ErrResetTokenExpired.Code, decodeBody(t, rec)["error"])

	rec = s.do(t, http.MethodPost, "/auth/signin", map[string]string{"identifier": "finn", "password": "new-password"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/forgot-password", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, blogauth.ErrUserNotFound.Code, decodeBody(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.mr.Close()
	rec = s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestMetricsRecorded(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodGet, "/healthz", nil)
	s.do(t, http.MethodGet, "/healthz", nil)
	s.do(t, http.MethodGet, "/nope", nil)

	families, err := s.reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "blogauth_http_requests_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			var route string
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" {
					route = l.GetValue()
				}
			}
			counts[route] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), counts["GET /healthz"])
	assert.Equal(t, float64(1), counts["unmatched"])
}

func TestMetricsEndpointMountedOnlyWhenSet(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	router, err := New(stubAuth{}, Options{
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
	})
	require.NoError(t, err)

	out := httptest.NewRecorder()
	router.ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "ok", out.Body.String())
}

type stubAuth struct {
	err error
}

func (s stubAuth) Signup(context.Context, blogauth.SignupRequest) (string, error) {
	return "", s.err
}

func (s stubAuth) VerifyOTP(context.Context, string, string) (blogauth.Result, error) {
	return blogauth.Result{}, s.err
}

func (s stubAuth) Signin(context.Context, string, string) (blogauth.TokenPair, error) {
	return blogauth.TokenPair{}, s.err
}

func (s stubAuth) Refresh(context.Context, string) (string, error) {
	return "", s.err
}

func (s stubAuth) RequestPasswordReset(context.Context, string) (blogauth.Result, error) {
	return blogauth.Result{}, s.err
}

func (s stubAuth) CompletePasswordReset(context.Context, string, string) (blogauth.Result, error) {
	return blogauth.Result{}, s.err
}

func (s stubAuth) ValidateAccess(context.Context, string) (*jwt.Claims, error) {
	return nil, s.err
}

func (s stubAuth) Ping(context.Context) error {
	return s.err
}

func TestServerErrorHidesCause(t *testing.T) {
	var logs bytes.Buffer
	cause := errors.New("pq: connection refused on 10.0.0.7")
	router, err := New(stubAuth{err: errors.Join(blogauth.ErrServerError, cause)}, Options{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", strings.NewReader(`{"email":"a@b.c"}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, blogauth.ErrServerError.Code, decodeBody(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.7")
	assert.Contains(t, logs.String(), "10.0.0.7")
}

func TestStatusFor(t *testing.T) {
	tests := map[blogauth.Kind]int{
		blogauth.KindOK:           http.StatusOK,
		blogauth.KindConflict:     http.StatusConflict,
		blogauth.KindNotFound:     http.StatusNotFound,
		blogauth.KindBadRequest:   http.StatusBadRequest,
		blogauth.KindUnauthorized: http.StatusUnauthorized,
		blogauth.KindServerError:  http.StatusInternalServerError,
		blogauth.KindNoContent:    http.StatusNoContent,
	}
	for kind, want := range tests {
		assert.Equal(t, want, statusFor(kind), kind.String())
	}
}
