package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInPairTx_RollbackOnError(t *testing.T) {
	notifs := NewNotificationRepository()
	repo := NewLikeRepository(notifs)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.InPairTx(ctx, "a", "b", func(tx repository.PairTx) error {
		edge := domain.ApplyLike(nil, nil, "a", "b", time.Now(), nil).Edge
		require.NoError(t, tx.SaveEdge(ctx, edge))
		require.NoError(t, tx.SaveNotification(ctx, &domain.Notification{UserID: "b", Type: domain.EnvelopeNewLike}))

		staged, err := tx.GetEdge(ctx, "a", "b")
		require.NoError(t, err)
		assert.NotEmpty(t, staged.ID)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetEdge(ctx, "a", "b")
	assert.ErrorIs(t, err, domain.ErrLikeNotFound)
	count, err := notifs.UnreadCount(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInPairTx_CommitsAndCopies(t *testing.T) {
	repo := NewLikeRepository(nil)
	ctx := context.Background()

	edge := domain.ApplyLike(nil, nil, "a", "b", time.Now(), nil).Edge
	require.NoError(t, repo.InPairTx(ctx, "b", "a", func(tx repository.PairTx) error {
		return tx.SaveEdge(ctx, edge)
	}))

	edge.Status = domain.LikeStatusUnmatched
	stored, err := repo.GetEdge(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatusPending, stored.Status)

	stored.Status = domain.LikeStatusMutual
	again, err := repo.GetEdge(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatusPending, again.Status)
}

func TestInPairTx_CanceledContext(t *testing.T) {
	repo := NewLikeRepository(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.InPairTx(ctx, "a", "b", func(tx repository.PairTx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestPresenceStore_Floor(t *testing.T) {
	s := NewPresenceStore()
	ctx := context.Background()

	n, _ := s.Decr(ctx, "u")
	assert.Equal(t, int64(-1), n)

	n, _ = s.Incr(ctx, "u")
	assert.Equal(t, int64(1), n)
	n, _ = s.Decr(ctx, "u")
	assert.Equal(t, int64(0), n)
	c, _ := s.Count(ctx, "u")
	assert.Zero(t, c)
}
