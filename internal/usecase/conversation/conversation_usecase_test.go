package conversation

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/gdugdh24/matchcore/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu  sync.Mutex
	got []domain.Delivery
}

func (r *recorder) Enqueue(ds ...domain.Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ds...)
}

func newUseCase(t *testing.T, inbox repository.NotificationRepository, out Enqueuer) *ConversationUseCase {
	t.Helper()
	uc := NewConversationUseCase(memory.NewConversationRepository(), inbox, out, zap.NewNop())
	_, err := uc.Open(context.Background(), "alice", "chat-1", []string{"bob", "carol"})
	require.NoError(t, err)
	return uc
}

func TestNotifyNewMessage_FansOutToTopicAndRecipients(t *testing.T) {
	ctx := context.Background()
	inbox := memory.NewNotificationRepository()
	out := &recorder{}
	uc := newUseCase(t, inbox, out)

	n, err := uc.NotifyNewMessage(ctx, MessageEvent{
		ChatID:       "chat-1",
		SenderID:     "alice",
		MessageID:    "m-1",
		Text:         "  hello there  ",
		RecipientIDs: []string{"bob", "alice", "bob", "", "carol"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, out.got, 3)
	assert.Equal(t, "conversation:chat-1", out.got[0].Topic)
	assert.Equal(t, "user:bob", out.got[1].Topic)
	assert.Equal(t, "user:carol", out.got[2].Topic)

	for _, d := range out.got {
		require.NoError(t, d.Envelope.Validate())
		msg, ok := d.Envelope.Payload.(domain.NewMessage)
		require.True(t, ok)
		assert.Equal(t, "hello there", msg.Preview)
		assert.Equal(t, "alice", msg.SenderID)
	}

	bobInbox, total, err := inbox.List(ctx, "bob", false, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.EnvelopeNewMessage, bobInbox[0].Type)

	_, total, err = inbox.List(ctx, "alice", false, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total, "sender gets no inbox entry")
}

func TestNotifyNewMessage_RequiresIDs(t *testing.T) {
	uc := newUseCase(t, nil, &recorder{})

	_, err := uc.NotifyNewMessage(context.Background(), MessageEvent{ChatID: "chat-1", SenderID: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNotifyNewMessage_DefaultsToOtherParticipants(t *testing.T) {
	out := &recorder{}
	uc := newUseCase(t, nil, out)

	n, err := uc.NotifyNewMessage(context.Background(), MessageEvent{ChatID: "chat-1", SenderID: "bob", MessageID: "m-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var topics []string
	for _, d := range out.got {
		topics = append(topics, d.Topic)
	}
	assert.Equal(t, []string{"conversation:chat-1", "user:alice", "user:carol"}, topics)
}

func TestNotifyNewMessage_RejectsOutsiders(t *testing.T) {
	ctx := context.Background()
	out := &recorder{}
	uc := newUseCase(t, nil, out)

	tests := []struct {
		name string
		ev   MessageEvent
		err  error
	}{
		{"sender not in chat", MessageEvent{ChatID: "chat-1", SenderID: "eve", MessageID: "m", RecipientIDs: []string{"bob"}}, domain.ErrNotParticipant},
		{"recipient not in chat", MessageEvent{ChatID: "chat-1", SenderID: "alice", MessageID: "m", RecipientIDs: []string{"bob", "eve"}}, domain.ErrNotParticipant},
		{"unknown chat", MessageEvent{ChatID: "chat-404", SenderID: "alice", MessageID: "m"}, domain.ErrConversationNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.NotifyNewMessage(ctx, tt.ev)
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.Empty(t, out.got, "rejected events are not fanned out")
}

func TestOpen_Membership(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(t, nil, &recorder{})

	conv, err := uc.Open(ctx, "bob", "chat-1", []string{"mallory"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, conv.ParticipantIDs, "existing participants are kept")

	_, err = uc.Open(ctx, "eve", "chat-1", []string{"alice"})
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, err = uc.Open(ctx, "eve", "chat-2", []string{"eve"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ok, err := uc.IsParticipant(ctx, "chat-1", "carol")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = uc.IsParticipant(ctx, "chat-1", "eve")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = uc.IsParticipant(ctx, "chat-404", "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hi", Preview(" hi "))

	long := strings.Repeat("ж", 150)
	got := Preview(long)
	assert.Equal(t, MaxPreviewRunes, len([]rune(got)))
	assert.True(t, strings.HasPrefix(long, got))
}
