package notification

import (
	"context"
	"testing"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *memory.NotificationRepository, userID string, n int) []string {
	t.Helper()
	base := time.Now().UTC()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		env := domain.NewEnvelope(userID, domain.NewLike{LikerID: "x", LikerName: "X"}, base.Add(time.Duration(i)*time.Second))
		notif, err := domain.NotificationFromEnvelope(env)
		require.NoError(t, err)
		require.NoError(t, repo.Create(context.Background(), notif))
		ids = append(ids, notif.ID)
	}
	return ids
}

func TestNotificationUseCase_Inbox(t *testing.T) {
	repo := memory.NewNotificationRepository()
	uc := NewNotificationUseCase(repo)
	ctx := context.Background()
	ids := seed(t, repo, "bob", 3)
	seed(t, repo, "carol", 1)

	res, err := uc.List(ctx, "bob", false, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.UnreadCount)
	assert.Equal(t, 50, res.Limit)
	require.Len(t, res.Items, 3)
	assert.Equal(t, ids[2], res.Items[0].ID, "newest first")

	require.NoError(t, uc.MarkRead(ctx, "bob", ids[0]))
	require.NoError(t, uc.MarkRead(ctx, "bob", ids[0]), "marking twice is fine")

	count, err := uc.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	unread, err := uc.List(ctx, "bob", true, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, unread.Total)

	updated, err := uc.MarkAllRead(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	count, err = uc.UnreadCount(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationUseCase_MarkReadForeignID(t *testing.T) {
	repo := memory.NewNotificationRepository()
	uc := NewNotificationUseCase(repo)
	ids := seed(t, repo, "carol", 1)

	err := uc.MarkRead(context.Background(), "bob", ids[0])
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)

	err = uc.MarkRead(context.Background(), "bob", "missing")
	assert.ErrorIs(t, err, domain.ErrNotificationNotFound)
}

func TestNotificationUseCase_EmptyInbox(t *testing.T) {
	uc := NewNotificationUseCase(memory.NewNotificationRepository())
	res, err := uc.List(context.Background(), "nobody", false, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Zero(t, res.Total)
}
