package cart

import (
	"context"
	"sync"

	"github.com/grcspl/storefront/internal/domain"
)

// MemoryStore keeps carts in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]domain.CartLine
}

// NewMemoryStore creates an empty in-memory cart store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]domain.CartLine)}
}

func (s *MemoryStore) Load(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := s.carts[cartID]
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, cartID string, lines []domain.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.CartLine, len(lines))
	copy(stored, lines)
	s.carts[cartID] = stored
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, cartID)
	return nil
}
