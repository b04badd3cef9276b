package blogauth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var (
	testAccessSecret  = []byte("access-secret-0123456789abcdefghijkl")
	testRefreshSecret = []byte("refresh-secret-0123456789abcdefghijk")
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Access.PrivateKey = cloneBytes(testAccessSecret)
	cfg.JWT.Refresh.PrivateKey = cloneBytes(testRefreshSecret)
	// cheapest costs Validate accepts; keeps the suite fast
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

type testEnv struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	repo     *mockRepo
	notifier *recordingNotifier
}

func newTestEnv(t testing.TB, cfg Config) *testEnv {
	t.Helper()
	return newTestEnvWithSink(t, cfg, nil)
}

func newTestEnvWithSink(t testing.TB, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	repo := newMockRepo()
	notifier := &recordingNotifier{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityRepository(repo).
		WithNotifier(notifier).
		WithAuditSink(sink).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{engine: engine, mr: mr, repo: repo, notifier: notifier}
}

// register runs Signup and VerifyOTP and returns the created user.
func (env *testEnv) register(t testing.TB, email, name, password string) *User {
	t.Helper()
	ctx := context.Background()

	handle, err := env.engine.Signup(ctx, SignupRequest{Email: email, Name: name, Password: password})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if _, err := env.engine.VerifyOTP(ctx, env.notifier.lastOTP(handle), handle); err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	user, err := env.repo.FindByEmail(ctx, handle)
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	return user
}

type mockRepo struct {
	mu     sync.Mutex
	users  map[string]*User
	nextID int

	createErr error
	updateErr error
	findErr   error
	creates   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: map[string]*User{}}
}

func (r *mockRepo) add(u User) *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		r.nextID++
		u.ID = "u" + strconv.Itoa(r.nextID)
	}
	cp := u
	r.users[u.ID] = &cp
	return &cp
}

func (r *mockRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrIdentityNotFound
}

func (r *mockRepo) FindOneByUsernameOrEmail(_ context.Context, identifier string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == identifier || u.Username == identifier {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrIdentityNotFound
}

func (r *mockRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockRepo) Create(_ context.Context, input CreateUserInput) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Email == input.Email || u.Username == input.Username {
			return nil, ErrIdentityDuplicate
		}
	}
	r.nextID++
	now := time.Now()
	u := &User{
		ID:           "u" + strconv.Itoa(r.nextID),
		Username:     input.Username,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (r *mockRepo) UpdatePassword(_ context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, u := range r.users {
		if u.Email == email {
			u.PasswordHash = passwordHash
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrIdentityNotFound
}

func (r *mockRepo) hashOf(email string) string {
	u, err := r.FindByEmail(context.Background(), email)
	if err != nil {
		return ""
	}
	return u.PasswordHash
}

func (r *mockRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type sentMessage struct {
	email string
	value string
}

type recordingNotifier struct {
	mu      sync.Mutex
	otps    []sentMessage
	resets  []sentMessage
	otpErr  error
	linkErr error
}

func (n *recordingNotifier) SendOTP(_ context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.otpErr != nil {
		return n.otpErr
	}
	n.otps = append(n.otps, sentMessage{email: email, value: code})
	return nil
}

func (n *recordingNotifier) SendResetLink(_ context.Context, email, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.linkErr != nil {
		return n.linkErr
	}
	n.resets = append(n.resets, sentMessage{email: email, value: token})
	return nil
}

func (n *recordingNotifier) lastOTP(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.otps) - 1; i >= 0; i-- {
		if n.otps[i].email == email {
			return n.otps[i].value
		}
	}
	return ""
}

func (n *recordingNotifier) lastResetToken(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.resets) - 1; i >= 0; i-- {
		if n.resets[i].email == email {
			return n.resets[i].value
		}
	}
	return ""
}

func (n *recordingNotifier) otpCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.otps)
}

var errSMTPDown = errors.New("smtp: connection refused")

func assertKind(t *testing.T, err error, want *Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
	if got := KindOf(err); got != want.Kind {
		t.Fatalf("expected kind %s, got %s", want.Kind, got)
	}
	if strings.TrimSpace(CodeOf(err)) != want.Code {
		t.Fatalf("expected code %s, got %s", want.Code, CodeOf(err))
	}
}
