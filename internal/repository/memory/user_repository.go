package memory

import (
	"context"
	"sync"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
)

// UserRepository is a seedable in-process profile directory.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.UserSummary
}

func NewUserRepository(users ...domain.UserSummary) *UserRepository {
	r := &UserRepository{users: make(map[string]domain.UserSummary, len(users))}
	for _, u := range users {
		r.Put(u)
	}
	return r
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Put(u domain.UserSummary) {
	r.mu.Lock()
	r.users[u.ID] = u
	r.mu.Unlock()
}

func (r *UserRepository) GetSummary(_ context.Context, id string) (*domain.UserSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok || !u.IsActive {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetSummaries(_ context.Context, ids []string) (map[string]*domain.UserSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domain.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok && u.IsActive {
			u := u
			out[id] = &u
		}
	}
	return out, nil
}
