package likes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository/memory"
	"github.com/gdugdh24/matchcore/internal/usecase/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	envs []domain.Envelope
}

func (d *recordingDispatcher) Dispatch(envs ...domain.Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.envs = append(d.envs, envs...)
}

func (d *recordingDispatcher) ofType(typ domain.EnvelopeType) []domain.Envelope {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.Envelope
	for _, e := range d.envs {
		if e.Type() == typ {
			out = append(out, e)
		}
	}
	return out
}

type stubScorer struct {
	score float64
	err   error
	calls int
}

func (s *stubScorer) Score(_ context.Context, _, _ *domain.UserSummary) (*domain.Compatibility, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Compatibility{Score: s.score, Explanations: []string{"shared interests"}}, nil
}

type fixture struct {
	uc            *LikeUseCase
	dispatcher    *recordingDispatcher
	notifications *memory.NotificationRepository
	scorer        *stubScorer
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := memory.NewUserRepository(
		domain.UserSummary{ID: "alice", Username: "alice", FirstName: strPtr("Alice"), IsActive: true},
		domain.UserSummary{ID: "bob", Username: "bob", FirstName: strPtr("Bob"), IsActive: true},
		domain.UserSummary{ID: "carol", Username: "carol", IsActive: true},
		domain.UserSummary{ID: "ghost", Username: "ghost", IsActive: false},
	)
	notifications := memory.NewNotificationRepository()
	likes := memory.NewLikeRepository(notifications)
	dispatcher := &recordingDispatcher{}
	scorer := &stubScorer{score: 0}

	return &fixture{
		uc:            NewLikeUseCase(likes, users, scorer, notifier.New(), dispatcher, zap.NewNop()),
		dispatcher:    dispatcher,
		notifications: notifications,
		scorer:        scorer,
	}
}

func TestLike_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.uc.Like(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatusPending, res.Like.Status)
	assert.False(t, res.WasMutualTransition)
	require.NotNil(t, res.Like.CompatibilityScore)
	assert.Equal(t, 0.0, *res.Like.CompatibilityScore)

	st, err := f.uc.GetStatus(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, st.ILiked)
	assert.False(t, st.TheyLiked)
	assert.Nil(t, st.TheirLikeStatus)

	stats, err := f.uc.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LikesSent)
	assert.Len(t, f.dispatcher.ofType(domain.EnvelopeNewLike), 1)

	res, err = f.uc.Like(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, res.WasMutualTransition)
	assert.True(t, res.IsMutual)
	require.NotNil(t, res.MatchedUser)
	assert.Equal(t, "alice", res.MatchedUser.ID)

	matches := f.dispatcher.ofType(domain.EnvelopeMutualMatch)
	require.Len(t, matches, 2)
	recipients := []string{matches[0].RecipientID, matches[1].RecipientID}
	assert.ElementsMatch(t, []string{"alice", "bob"}, recipients)
	for _, env := range matches {
		mm := env.Payload.(domain.MutualMatch)
		assert.NotEqual(t, env.RecipientID, mm.MatchedUserID)
		assert.NoError(t, env.Validate())
	}

	for _, user := range []string{"alice", "bob"} {
		stats, err := f.uc.Stats(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.MutualMatches, user)
	}

	unlike, err := f.uc.Unlike(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, unlike.WasMutual)
	require.NotNil(t, unlike.Removed)
	assert.Equal(t, domain.LikeStatusUnmatched, unlike.Removed.Status)

	st, err = f.uc.GetStatus(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.False(t, st.IsMutual)
	assert.False(t, st.ILiked)
	require.NotNil(t, st.MyLikeStatus)
	assert.Equal(t, domain.LikeStatusUnmatched, *st.MyLikeStatus)

	res, err = f.uc.Like(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.LikeStatusPending, res.Like.Status)
	assert.False(t, res.WasMutualTransition)
	assert.Nil(t, res.Like.MutualAt)
	assert.Len(t, f.dispatcher.ofType(domain.EnvelopeNewLike), 2)
}

func TestLike_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.uc.Like(ctx, "alice", "bob")
	require.NoError(t, err)
	second, err := f.uc.Like(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, first.Like.ID, second.Like.ID)
	assert.Equal(t, first.Like.Status, second.Like.Status)
	assert.Len(t, f.dispatcher.ofType(domain.EnvelopeNewLike), 1)
	assert.Equal(t, 1, f.scorer.calls)

	count, err := f.notifications.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLike_ReLikeMutualDoesNotReEmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Like(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = f.uc.Like(ctx, "bob", "alice")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := f.uc.Like(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.True(t, res.IsMutual)
		assert.False(t, res.WasMutualTransition)
	}
	assert.Len(t, f.dispatcher.ofType(domain.EnvelopeMutualMatch), 2)
}

func TestLike_ConcurrentSymmetry(t *testing.T) {
	for round := 0; round < 50; round++ {
		f := newFixture(t)
		ctx := context.Background()

		var g errgroup.Group
		g.Go(func() error { _, err := f.uc.Like(ctx, "alice", "bob"); return err })
		g.Go(func() error { _, err := f.uc.Like(ctx, "bob", "alice"); return err })
		require.NoError(t, g.Wait())

		st, err := f.uc.GetStatus(ctx, "alice", "bob")
		require.NoError(t, err)
		require.True(t, st.IsMutual, "round %d", round)
		require.Len(t, f.dispatcher.ofType(domain.EnvelopeMutualMatch), 2, "round %d", round)
	}
}

func TestLike_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Like(ctx, "alice", "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidSelfReference)

	_, err = f.uc.Like(ctx, "alice", "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.uc.Like(ctx, "alice", "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.uc.Unlike(ctx, "alice", "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidSelfReference)

	stats, err := f.uc.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, stats.LikesSent)
	assert.Empty(t, f.dispatcher.envs)
}

func TestLike_ScorerFailureStillStores(t *testing.T) {
	f := newFixture(t)
	f.scorer.err = errors.New("scoring unavailable")

	res, err := f.uc.Like(context.Background(), "alice", "carol")
	require.NoError(t, err)
	assert.Nil(t, res.Like.CompatibilityScore)
	assert.Equal(t, domain.LikeStatusPending, res.Like.Status)
}

func TestUnlike_AbsentIsNoop(t *testing.T) {
	f := newFixture(t)

	res, err := f.uc.Unlike(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Nil(t, res.Removed)
	assert.False(t, res.WasMutual)
}

func TestUnmatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.uc.Unmatch(ctx, "alice", "bob"), domain.ErrMatchNotFound)

	_, err := f.uc.Like(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.ErrorIs(t, f.uc.Unmatch(ctx, "alice", "bob"), domain.ErrMatchNotFound)

	_, err = f.uc.Like(ctx, "bob", "alice")
	require.NoError(t, err)
	require.NoError(t, f.uc.Unmatch(ctx, "bob", "alice"))

	for _, user := range []string{"alice", "bob"} {
		stats, err := f.uc.Stats(ctx, user)
		require.NoError(t, err)
		assert.Zero(t, stats.MutualMatches)
		assert.Zero(t, stats.LikesSent)
	}
}

func TestLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Like(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = f.uc.Like(ctx, "alice", "carol")
	require.NoError(t, err)
	_, err = f.uc.Like(ctx, "bob", "alice")
	require.NoError(t, err)

	sent, total, err := f.uc.ListSent(ctx, "alice", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, sent, 2)
	for _, item := range sent {
		require.NotNil(t, item.User)
		assert.Equal(t, item.UserID, item.User.ID)
	}

	received, total, err := f.uc.ListReceived(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, received, 1)
	assert.Equal(t, "bob", received[0].UserID)

	mutual, total, err := f.uc.ListMutual(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mutual, 1)
	assert.NotNil(t, mutual[0].MutualAt)

	page, total, err := f.uc.ListSent(ctx, "alice", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, page, 1)
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultLimit, 0},
		{-5, -1, DefaultLimit, 0},
		{1, 3, 1, 3},
		{500, 0, MaxLimit, 0},
	}
	for _, tt := range tests {
		l, o := NormalizePage(tt.limit, tt.offset)
		assert.Equal(t, tt.wantLimit, l)
		assert.Equal(t, tt.wantOffset, o)
	}
}
