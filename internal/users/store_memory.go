package users

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type MemStore struct {
	mu    sync.RWMutex
	cost  int
	list  []User
	index map[string]int
}

func NewMemStore() *MemStore {
	return NewMemStoreWithCost(bcrypt.DefaultCost)
}

// NewMemStoreWithCost lets tests trade hash strength for speed.
func NewMemStoreWithCost(cost int) *MemStore {
	return &MemStore{
		cost:  cost,
		index: make(map[string]int),
	}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Create(ctx context.Context, username, password string) error {
	s.mu.RLock()
	_, taken := s.index[username]
	s.mu.RUnlock()
	if taken {
		return ErrUsernameExists
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return err
	}

	// Re-checked under the write lock: another caller may have registered
	// the name while the hash was computed.
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[username]; ok {
		return ErrUsernameExists
	}

	s.index[username] = len(s.list)
	s.list = append(s.list, User{
		Username:  username,
		Hash:      hash,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *MemStore) Verify(ctx context.Context, username, password string) (User, error) {
	s.mu.RLock()
	i, ok := s.index[username]
	var u User
	if ok {
		u = s.list[i]
	}
	s.mu.RUnlock()

	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := checkPassword(u.Hash, password); err != nil {
		return User{}, err
	}
	return u, nil
}

// Usernames returns registered names in registration order.
func (s *MemStore) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.list))
	for _, u := range s.list {
		out = append(out, u.Username)
	}
	return out
}
