package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const hookTimeout = 3 * time.Second

// Hooks observe session lifecycle; presence tracking implements it.
type Hooks interface {
	SessionOpened(ctx context.Context, userID string)
	SessionClosed(ctx context.Context, userID string)
}

// Membership decides who may join a conversation topic.
type Membership interface {
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
}

// Hub indexes live sessions by id, user and topic and fans envelopes out to them.
// Topic membership is ephemeral: clients replay their joins after every reconnect.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[string]map[string]*Session
	byTopic  map[string]map[string]*Session

	hooks   Hooks
	members Membership
	log     *zap.Logger
}

// NewHub builds an empty hub. With a nil members every conversation join is refused.
func NewHub(hooks Hooks, members Membership, log *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		byUser:   make(map[string]map[string]*Session),
		byTopic:  make(map[string]map[string]*Session),
		hooks:    hooks,
		members:  members,
		log:      log.Named("hub"),
	}
}

func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; ok {
		h.mu.Unlock()
		return
	}
	h.sessions[s.ID] = s
	if h.byUser[s.UserID] == nil {
		h.byUser[s.UserID] = make(map[string]*Session)
	}
	h.byUser[s.UserID][s.ID] = s
	h.mu.Unlock()

	metrics.PushSessions.Inc()
	h.log.Debug("session registered", zap.String("session_id", s.ID), zap.String("user_id", s.UserID))
	h.runHook(s.UserID, true)
}

// Unregister removes the session from every index and closes it. Safe to call twice.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.ID]; !ok {
		h.mu.Unlock()
		s.Close()
		return
	}
	delete(h.sessions, s.ID)
	if users := h.byUser[s.UserID]; users != nil {
		delete(users, s.ID)
		if len(users) == 0 {
			delete(h.byUser, s.UserID)
		}
	}
	for topic := range s.topics {
		h.removeFromTopicLocked(topic, s)
	}
	s.topics = make(map[string]struct{})
	h.mu.Unlock()

	s.Close()
	metrics.PushSessions.Dec()
	h.log.Debug("session unregistered", zap.String("session_id", s.ID), zap.String("user_id", s.UserID))
	h.runHook(s.UserID, false)
}

// Join adds the session to topic. Joining twice is a no-op. A session may only
// join its own personal topic and conversations its user participates in.
func (h *Hub) Join(ctx context.Context, s *Session, topic string) error {
	kind, id, err := domain.ParseTopic(topic)
	if err != nil {
		return err
	}
	switch kind {
	case domain.TopicPersonal:
		if id != s.UserID {
			return fmt.Errorf("%w: %s", domain.ErrTopicForbidden, topic)
		}
	case domain.TopicConversation:
		if h.members == nil {
			return fmt.Errorf("%w: %s", domain.ErrTopicForbidden, topic)
		}
		ok, err := h.members.IsParticipant(ctx, id, s.UserID)
		if err != nil {
			return fmt.Errorf("check membership of %s: %w", topic, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrTopicForbidden, topic)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.ID]; !ok {
		return fmt.Errorf("session %s is not registered", s.ID)
	}
	if _, ok := s.topics[topic]; ok {
		return nil
	}
	s.topics[topic] = struct{}{}
	if h.byTopic[topic] == nil {
		h.byTopic[topic] = make(map[string]*Session)
	}
	h.byTopic[topic][s.ID] = s
	return nil
}

// Leave removes the session from topic. Leaving a topic not joined is a no-op.
func (h *Hub) Leave(s *Session, topic string) error {
	if _, _, err := domain.ParseTopic(topic); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := s.topics[topic]; !ok {
		return nil
	}
	delete(s.topics, topic)
	h.removeFromTopicLocked(topic, s)
	return nil
}

func (h *Hub) removeFromTopicLocked(topic string, s *Session) {
	members := h.byTopic[topic]
	if members == nil {
		return
	}
	delete(members, s.ID)
	if len(members) == 0 {
		delete(h.byTopic, topic)
	}
}

// Topics lists the session's memberships in sorted order.
func (h *Hub) Topics(s *Session) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// SendToUser queues env on every session of userID and returns how many accepted it.
func (h *Hub) SendToUser(userID string, env domain.Envelope) int {
	h.mu.RLock()
	targets := collect(h.byUser[userID])
	h.mu.RUnlock()
	return h.fanOut(targets, env, "user")
}

// SendToTopic queues env on every session joined to topic.
func (h *Hub) SendToTopic(topic string, env domain.Envelope) int {
	h.mu.RLock()
	targets := collect(h.byTopic[topic])
	h.mu.RUnlock()
	return h.fanOut(targets, env, "topic")
}

// Deliver routes a broker delivery. Envelopes are validated here before any client sees them.
func (h *Hub) Deliver(d domain.Delivery) {
	if err := d.Envelope.Validate(); err != nil {
		h.log.Warn("dropping invalid envelope", zap.String("topic", d.Topic), zap.Error(err))
		return
	}
	kind, id, err := domain.ParseTopic(d.Topic)
	if err != nil {
		h.log.Warn("dropping envelope with bad topic", zap.String("topic", d.Topic), zap.Error(err))
		return
	}
	if kind == domain.TopicPersonal {
		h.SendToUser(id, d.Envelope)
		return
	}
	h.SendToTopic(d.Topic, d.Envelope)
}

// Close shuts every session down; their connection goroutines unregister them.
func (h *Hub) Close() {
	h.mu.RLock()
	all := collect(h.sessions)
	h.mu.RUnlock()
	for _, s := range all {
		s.Close()
	}
}

func (h *Hub) fanOut(targets []*Session, env domain.Envelope, mode string) int {
	if len(targets) == 0 {
		return 0
	}
	frame, err := json.Marshal(env)
	if err != nil {
		h.log.Error("failed to encode envelope", zap.String("type", string(env.Type())), zap.Error(err))
		return 0
	}
	sent := 0
	for _, s := range targets {
		if s.Enqueue(frame) {
			sent++
		}
	}
	metrics.PushDeliveries.WithLabelValues(mode).Add(float64(sent))
	return sent
}

func (h *Hub) runHook(userID string, opened bool) {
	if h.hooks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	if opened {
		h.hooks.SessionOpened(ctx, userID)
	} else {
		h.hooks.SessionClosed(ctx, userID)
	}
}

func collect(m map[string]*Session) []*Session {
	out := make([]*Session, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}
