package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrDuplicateISBN = errors.New("duplicate isbn")

type MemStore struct {
	mu    sync.RWMutex
	order []string
	m     map[string]Book
}

func NewMemStore(seed []Book) (*MemStore, error) {
	s := &MemStore{
		order: make([]string, 0, len(seed)),
		m:     make(map[string]Book, len(seed)),
	}
	for _, b := range seed {
		if _, dup := s.m[b.ISBN]; dup {
			return nil, ErrDuplicateISBN
		}
		s.order = append(s.order, b.ISBN)
		s.m[b.ISBN] = b.clone()
	}
	return s, nil
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) List(ctx context.Context) ([]Book, error) {
	return s.filter(func(Book) bool { return true }), nil
}

func (s *MemStore) Get(ctx context.Context, isbn string) (Book, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.m[isbn]
	if !ok {
		return Book{}, false, nil
	}
	return b.clone(), true, nil
}

func (s *MemStore) ListByAuthor(ctx context.Context, author string) ([]Book, error) {
	return s.filter(func(b Book) bool { return strings.EqualFold(b.Author, author) }), nil
}

func (s *MemStore) ListByTitle(ctx context.Context, title string) ([]Book, error) {
	return s.filter(func(b Book) bool { return strings.EqualFold(b.Title, title) }), nil
}

func (s *MemStore) SearchTitle(ctx context.Context, fragment string) ([]Book, error) {
	needle := strings.ToLower(fragment)
	return s.filter(func(b Book) bool {
		return strings.Contains(strings.ToLower(b.Title), needle)
	}), nil
}

func (s *MemStore) PutReview(ctx context.Context, isbn, username, text string) (Book, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.m[isbn]
	if !ok {
		return Book{}, false, nil
	}
	if b.Reviews == nil {
		b.Reviews = make(map[string]string)
	}
	b.Reviews[username] = text
	s.m[isbn] = b
	return b.clone(), true, nil
}

func (s *MemStore) DeleteReview(ctx context.Context, isbn, username string) (Book, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.m[isbn]
	if !ok {
		return Book{}, false, nil
	}
	delete(b.Reviews, username)
	return b.clone(), true, nil
}

func (s *MemStore) filter(keep func(Book) bool) []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, 0, len(s.order))
	for _, isbn := range s.order {
		b := s.m[isbn]
		if keep(b) {
			out = append(out, b.clone())
		}
	}
	return out
}
