package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
)

type ConversationRepository struct {
	mu   sync.RWMutex
	byID map[string]*domain.Conversation
	now  func() time.Time
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		byID: make(map[string]*domain.Conversation),
		now:  time.Now,
	}
}

var _ repository.ConversationRepository = (*ConversationRepository)(nil)

func (r *ConversationRepository) CreateIfAbsent(_ context.Context, c *domain.Conversation) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[c.ID]; ok {
		return cloneConversation(existing), nil
	}
	stored := cloneConversation(c)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	r.byID[c.ID] = stored
	return cloneConversation(stored), nil
}

func (r *ConversationRepository) Get(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return cloneConversation(c), nil
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	out := *c
	out.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	return &out
}
