package history

import (
	"context"
	"sync"
	"time"

	"github.com/laxmihoney/honeychat/internal/chat"
)

type entry struct {
	messages  []chat.Message
	expiresAt time.Time
}

// MemoryStore is an in-process history store for local/dev use and tests. It
// honors the same per-class TTL policy as the Redis store, with lazy
// eviction: expired transcripts disappear on the next access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// SetClock replaces the store's time source. Test use only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Append(_ context.Context, key chat.SessionKey, turn chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	e := s.live(k)
	e.messages = append(e.messages, turn.Messages()...)
	// Every append refreshes the TTL, matching the Redis store.
	e.expiresAt = s.now().Add(key.Class.TTL())
	s.entries[k] = e
	return nil
}

func (s *MemoryStore) ReadAll(_ context.Context, key chat.SessionKey) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key.String())
	if len(e.messages) == 0 {
		return nil, nil
	}
	out := make([]chat.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, key chat.SessionKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	e := s.live(k)
	if len(e.messages) == 0 {
		return 0, nil
	}
	delete(s.entries, k)
	return 1, nil
}

func (s *MemoryStore) TTL(_ context.Context, key chat.SessionKey) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return 0, nil
	}
	remaining := e.expiresAt.Sub(s.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (s *MemoryStore) Close() error { return nil }

// live returns the entry for k, evicting it first if its TTL has lapsed.
// Callers hold the lock.
func (s *MemoryStore) live(k string) entry {
	e, ok := s.entries[k]
	if !ok {
		return entry{}
	}
	if !e.expiresAt.After(s.now()) {
		delete(s.entries, k)
		return entry{}
	}
	return e
}
