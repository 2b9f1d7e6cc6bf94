package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/ordersubmit/internal/submissions/domain"
)

// Store keeps committed results in process memory. The conditional write is
// atomic within one process only, so it suits tests and single-instance runs.
type Store struct {
	mu    sync.RWMutex
	items map[domain.IdempotencyKey]domain.StoredResult
}

// NewStore creates an empty in-memory result store.
func NewStore() *Store {
	return &Store{items: make(map[domain.IdempotencyKey]domain.StoredResult)}
}

// Get returns a copy of the stored result for key, or nil when absent.
func (s *Store) Get(_ context.Context, key domain.IdempotencyKey) (*domain.StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	result := value
	return &result, nil
}

// PutIfAbsent stores result only if key has no value yet.
func (s *Store) PutIfAbsent(_ context.Context, key domain.IdempotencyKey, result domain.StoredResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[key]; exists {
		return false, nil
	}
	s.items[key] = result
	return true, nil
}

// Len reports how many keys have been committed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
