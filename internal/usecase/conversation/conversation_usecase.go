package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"go.uber.org/zap"
)

// MaxPreviewRunes bounds the message preview carried in NewMessage envelopes.
const MaxPreviewRunes = 100

// Enqueuer is satisfied by the notifier dispatcher.
type Enqueuer interface {
	Enqueue(deliveries ...domain.Delivery)
}

// MessageEvent is what the chat service reports after storing a message.
type MessageEvent struct {
	ChatID       string
	SenderID     string
	MessageID    string
	Text         string
	RecipientIDs []string
}

// ConversationUseCase keeps chat participant lists and fans new-message events
// out to the conversation topic and to each recipient's personal channel.
type ConversationUseCase struct {
	conversations repository.ConversationRepository
	notifications repository.NotificationRepository
	out           Enqueuer
	log           *zap.Logger
	now           func() time.Time
}

func NewConversationUseCase(
	conversations repository.ConversationRepository,
	notifications repository.NotificationRepository,
	out Enqueuer,
	log *zap.Logger,
) *ConversationUseCase {
	return &ConversationUseCase{
		conversations: conversations,
		notifications: notifications,
		out:           out,
		log:           log.Named("conversation"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Open registers a conversation with the caller among its participants. An
// existing conversation is returned as stored, provided the caller belongs to it.
func (uc *ConversationUseCase) Open(ctx context.Context, callerID, chatID string, participantIDs []string) (*domain.Conversation, error) {
	if callerID == "" || chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", domain.ErrInvalidInput)
	}

	ids := []string{callerID}
	seen := map[string]bool{callerID: true}
	for _, id := range participantIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: a conversation needs another participant", domain.ErrInvalidInput)
	}

	conv, err := uc.conversations.CreateIfAbsent(ctx, &domain.Conversation{
		ID:             chatID,
		ParticipantIDs: ids,
		CreatedAt:      uc.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}
	if !conv.HasParticipant(callerID) {
		return nil, domain.ErrNotParticipant
	}
	return conv, nil
}

// IsParticipant answers conversation topic joins on the push hub.
func (uc *ConversationUseCase) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	conv, err := uc.conversations.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrConversationNotFound) {
			return false, nil
		}
		return false, err
	}
	return conv.HasParticipant(userID), nil
}

// NotifyNewMessage returns the number of personal channels addressed. The
// sender and every listed recipient must be participants; with no recipients
// listed, every other participant is addressed.
func (uc *ConversationUseCase) NotifyNewMessage(ctx context.Context, ev MessageEvent) (int, error) {
	if ev.ChatID == "" || ev.SenderID == "" || ev.MessageID == "" {
		return 0, fmt.Errorf("%w: chat, sender and message ids are required", domain.ErrInvalidInput)
	}

	conv, err := uc.conversations.Get(ctx, ev.ChatID)
	if err != nil {
		return 0, err
	}
	if !conv.HasParticipant(ev.SenderID) {
		return 0, domain.ErrNotParticipant
	}
	recipients := ev.RecipientIDs
	if len(recipients) == 0 {
		recipients = conv.ParticipantIDs
	}
	for _, id := range recipients {
		if id != "" && !conv.HasParticipant(id) {
			return 0, fmt.Errorf("%w: recipient %s", domain.ErrNotParticipant, id)
		}
	}

	payload := domain.NewMessage{
		ChatID:    ev.ChatID,
		SenderID:  ev.SenderID,
		MessageID: ev.MessageID,
		Preview:   Preview(ev.Text),
	}
	now := uc.now()

	deliveries := []domain.Delivery{{
		Topic:    domain.ConversationTopic(ev.ChatID),
		Envelope: domain.NewEnvelope("", payload, now),
	}}

	seen := map[string]bool{ev.SenderID: true}
	for _, id := range recipients {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		env := domain.NewEnvelope(id, payload, now)
		deliveries = append(deliveries, domain.ToUser(env))
		uc.store(ctx, env)
	}

	uc.out.Enqueue(deliveries...)
	return len(deliveries) - 1, nil
}

// store keeps an inbox copy; a failure only costs the offline copy.
func (uc *ConversationUseCase) store(ctx context.Context, env domain.Envelope) {
	if uc.notifications == nil {
		return
	}
	n, err := domain.NotificationFromEnvelope(env)
	if err != nil || n == nil {
		return
	}
	if err := uc.notifications.Create(ctx, n); err != nil {
		uc.log.Warn("failed to store message notification",
			zap.String("user_id", env.RecipientID),
			zap.Error(err),
		)
	}
}

// Preview trims whitespace and cuts text to MaxPreviewRunes runes.
func Preview(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= MaxPreviewRunes {
		return string(runes)
	}
	return string(runes[:MaxPreviewRunes])
}
