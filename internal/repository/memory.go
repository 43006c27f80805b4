package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/internal/model/user"
)

// MemoryTurnStore keeps turns in process memory. Suitable for development and tests.
type MemoryTurnStore struct {
	mu    sync.RWMutex
	seq   int64
	turns map[string][]chat.Turn
}

// NewMemoryTurnStore bootstraps an empty in-memory turn store.
func NewMemoryTurnStore() *MemoryTurnStore {
	return &MemoryTurnStore{
		turns: make(map[string][]chat.Turn),
	}
}

// Append stores turn under its username.
func (s *MemoryTurnStore) Append(_ context.Context, turn chat.Turn) error {
	if turn.Username == "" {
		return ErrUsernameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	turn.Seq = s.seq
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	list := append(s.turns[turn.Username], turn)
	// Callers may append out of timestamp order under concurrency; keep the slice sorted.
	if n := len(list); n > 1 && turn.Before(list[n-2]) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Before(list[j]) })
	}
	s.turns[turn.Username] = list
	return nil
}

// History returns the most recent limit turns for username, oldest first.
func (s *MemoryTurnStore) History(_ context.Context, username string, limit int) ([]chat.Turn, error) {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.turns[username]
	start := 0
	if len(list) > limit {
		start = len(list) - limit
	}

	copied := make([]chat.Turn, len(list)-start)
	copy(copied, list[start:])
	return copied, nil
}

// Clear removes every turn owned by username.
func (s *MemoryTurnStore) Clear(_ context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.turns[username])
	delete(s.turns, username)
	return int64(n), nil
}

// MemoryUserStore keeps accounts in process memory.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]user.User
}

// NewMemoryUserStore bootstraps an empty account store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]user.User)}
}

// Create registers u. Usernames are unique.
func (s *MemoryUserStore) Create(_ context.Context, u user.User) error {
	if u.Username == "" {
		return ErrUsernameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Username]; ok {
		return ErrUserExists
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.Username] = u
	return nil
}

// FindByUsername looks up an account.
func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return user.User{}, ErrUserNotFound
	}
	return u, nil
}
