package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/blogauth"
	"github.com/google/uuid"
)

// Memory is an in-process IdentityRepository with the same uniqueness rules
// as Postgres. Users are lost on restart.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]*blogauth.User
	byEmail    map[string]string
	byUsername map[string]string
	now        func() time.Time
}

var _ blogauth.IdentityRepository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]*blogauth.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*blogauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lookup(m.byEmail, email)
}

func (m *Memory) FindOneByUsernameOrEmail(_ context.Context, identifier string) (*blogauth.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, err := m.lookup(m.byUsername, identifier); err == nil {
		return u, nil
	}
	return m.lookup(m.byEmail, identifier)
}

func (m *Memory) UsernameExists(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byUsername[username]
	return ok, nil
}

func (m *Memory) Create(_ context.Context, input blogauth.CreateUserInput) (*blogauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[input.Email]; ok {
		return nil, blogauth.ErrIdentityDuplicate
	}
	if _, ok := m.byUsername[input.Username]; ok {
		return nil, blogauth.ErrIdentityDuplicate
	}

	now := m.now().UTC()
	u := &blogauth.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u.ID
	m.byUsername[u.Username] = u.ID

	cp := *u
	return &cp, nil
}

func (m *Memory) UpdatePassword(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return blogauth.ErrIdentityNotFound
	}
	u := m.byID[id]
	u.PasswordHash = passwordHash
	u.UpdatedAt = m.now().UTC()
	return nil
}

func (m *Memory) lookup(index map[string]string, key string) (*blogauth.User, error) {
	id, ok := index[key]
	if !ok {
		return nil, blogauth.ErrIdentityNotFound
	}
	cp := *m.byID[id]
	return &cp, nil
}
