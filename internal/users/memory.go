package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type record struct {
	user         User
	passwordHash string
}

// MemoryStore is an in-process user store for local/dev use.
type MemoryStore struct {
	mu      sync.Mutex
	byEmail map[string]record
	byName  map[string]record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byEmail: make(map[string]record),
		byName:  make(map[string]record),
	}
}

func (s *MemoryStore) Create(ctx context.Context, fullName, email, password string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return User{}, ErrEmailTaken
	}

	username, err := generateUniqueUsername(ctx, unlockedLookup{s}, email)
	if err != nil {
		return User{}, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}

	rec := record{
		user: User{
			UID:       uuid.New(),
			FullName:  fullName,
			Email:     email,
			Username:  username,
			CreatedAt: time.Now().UTC(),
		},
		passwordHash: hash,
	}
	s.byEmail[email] = rec
	s.byName[username] = rec
	return rec.user, nil
}

func (s *MemoryStore) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

func (s *MemoryStore) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byName[strings.ToLower(strings.TrimSpace(username))]
	return ok, nil
}

func (s *MemoryStore) Close() error { return nil }

// unlockedLookup exposes username lookups without re-acquiring the mutex
// Create already holds.
type unlockedLookup struct {
	s *MemoryStore
}

func (l unlockedLookup) UsernameExists(_ context.Context, username string) (bool, error) {
	_, ok := l.s.byName[strings.ToLower(strings.TrimSpace(username))]
	return ok, nil
}
