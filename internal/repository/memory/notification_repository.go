package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/google/uuid"
)

type NotificationRepository struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.Notification
	now    func() time.Time
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		byUser: make(map[string][]*domain.Notification),
		now:    time.Now,
	}
}

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now().UTC()
	}
	c := *n
	r.mu.Lock()
	r.byUser[n.UserID] = append(r.byUser[n.UserID], &c)
	r.mu.Unlock()
	return nil
}

func (r *NotificationRepository) List(_ context.Context, userID string, unreadOnly bool, limit, offset int) ([]*domain.Notification, int, error) {
	r.mu.RLock()
	var out []*domain.Notification
	for _, n := range r.byUser[userID] {
		if unreadOnly && n.IsRead {
			continue
		}
		c := *n
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, limit, offset), len(out), nil
}

func (r *NotificationRepository) UnreadCount(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.byUser[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.byUser[userID] {
		if n.ID != id {
			continue
		}
		if !n.IsRead {
			now := r.now().UTC()
			n.IsRead = true
			n.ReadAt = &now
		}
		return nil
	}
	return domain.ErrNotificationNotFound
}

func (r *NotificationRepository) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	updated := 0
	for _, n := range r.byUser[userID] {
		if n.IsRead {
			continue
		}
		t := now
		n.IsRead = true
		n.ReadAt = &t
		updated++
	}
	return updated, nil
}
