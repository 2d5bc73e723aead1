package configstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
)

// MemoryStore keeps the envelope in process memory. It is used by tests and
// by the "memory" backend for throwaway sessions.
type MemoryStore struct {
	mu       sync.Mutex
	data     []byte
	persists int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, common.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemoryStore) Persist(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.persists++
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

// Persists reports how many times Persist has been called.
func (s *MemoryStore) Persists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persists
}
