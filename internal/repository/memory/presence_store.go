package memory

import (
	"context"
	"sync"

	"github.com/gdugdh24/matchcore/internal/repository"
)

type PresenceStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{counts: make(map[string]int64)}
}

var _ repository.PresenceStore = (*PresenceStore)(nil)

func (s *PresenceStore) Incr(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID]++
	return s.counts[userID], nil
}

func (s *PresenceStore) Decr(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.counts[userID]
	if !ok {
		return -1, nil
	}
	n := cur - 1
	if n <= 0 {
		delete(s.counts, userID)
		return 0, nil
	}
	s.counts[userID] = n
	return n, nil
}

func (s *PresenceStore) Count(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[userID], nil
}
