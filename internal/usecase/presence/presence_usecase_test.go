package presence

import (
	"context"
	"sync"
	"testing"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository/memory"
	"github.com/gdugdh24/matchcore/internal/usecase/likes"
	"github.com/gdugdh24/matchcore/internal/usecase/notifier"
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

func (r *recorder) Dispatch(envs ...domain.Envelope) {}

func TestPresence_AnnouncesToMutualMatchesOnEdges(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository(
		domain.UserSummary{ID: "alice", Username: "alice", IsActive: true},
		domain.UserSummary{ID: "bob", Username: "bob", IsActive: true},
		domain.UserSummary{ID: "carol", Username: "carol", IsActive: true},
	)
	likeRepo := memory.NewLikeRepository(nil)
	out := &recorder{}
	luc := likes.NewLikeUseCase(likeRepo, users, nil, notifier.New(), out, zap.NewNop())

	_, err := luc.Like(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = luc.Like(ctx, "bob", "alice")
	require.NoError(t, err)
	_, err = luc.Like(ctx, "alice", "carol")
	require.NoError(t, err)

	uc := NewPresenceUseCase(memory.NewPresenceStore(), likeRepo, out, zap.NewNop())

	uc.SessionOpened(ctx, "alice")
	uc.SessionOpened(ctx, "alice")
	require.Len(t, out.got, 1, "only the 0->1 edge announces")
	assert.Equal(t, "user:bob", out.got[0].Topic)
	status := out.got[0].Envelope.Payload.(domain.UserStatus)
	assert.Equal(t, "alice", status.UserID)
	assert.True(t, status.IsOnline)

	online, err := uc.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)

	uc.SessionClosed(ctx, "alice")
	assert.Len(t, out.got, 1)
	uc.SessionClosed(ctx, "alice")
	require.Len(t, out.got, 2)
	assert.False(t, out.got[1].Envelope.Payload.(domain.UserStatus).IsOnline)

	uc.SessionClosed(ctx, "alice")
	assert.Len(t, out.got, 2, "count is floored at zero")
}
