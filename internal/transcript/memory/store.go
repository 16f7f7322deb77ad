package memory

import (
	"context"
	"sync"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
	"github.com/tjfontaine/polyglot-chatbot/internal/transcript"
)

// Store is an in-memory implementation of transcript.Store
type Store struct {
	mu        sync.RWMutex
	exchanges []domain.Exchange
}

var _ transcript.Store = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{}
}

func (s *Store) Append(ctx context.Context, ex domain.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges = append(s.exchanges, ex)
	return nil
}

// List returns a copy; callers may not observe later appends through it.
func (s *Store) List(ctx context.Context) ([]domain.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.exchanges), nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exchanges = nil
	return nil
}

func (s *Store) Close() error {
	return nil
}
