package notifier

import (
	"testing"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

var (
	alice = &domain.UserSummary{ID: "alice", Username: "alice", FirstName: strPtr("Alice"), PhotoURL: strPtr("a.jpg")}
	bob   = &domain.UserSummary{ID: "bob", Username: "bobby"}
)

func TestOnTransition_FreshPending(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := domain.ApplyLike(nil, nil, "alice", "bob", now, nil)

	envs := New().OnTransition(tr, alice, bob, now)
	require.Len(t, envs, 1)

	env := envs[0]
	assert.Equal(t, "bob", env.RecipientID)
	like, ok := env.Payload.(domain.NewLike)
	require.True(t, ok)
	assert.Equal(t, "alice", like.LikerID)
	assert.Equal(t, "Alice", like.LikerName)
	assert.Equal(t, "a.jpg", *like.LikerPhoto)
	assert.Equal(t, "Alice liked your profile!", like.Message)
	assert.NoError(t, env.Validate())
}

func TestOnTransition_BecameMutual(t *testing.T) {
	now := time.Now().UTC()
	score := 72.5
	rev := domain.ApplyLike(nil, nil, "bob", "alice", now, &domain.Compatibility{Score: score}).Edge
	tr := domain.ApplyLike(nil, rev, "alice", "bob", now, nil)
	require.True(t, tr.BecameMutual)

	envs := New().OnTransition(tr, alice, bob, now)
	require.Len(t, envs, 2)

	toAlice := envs[0].Payload.(domain.MutualMatch)
	assert.Equal(t, "alice", envs[0].RecipientID)
	assert.Equal(t, "bob", toAlice.MatchedUserID)
	assert.Equal(t, "bobby", toAlice.MatchedUserName)
	assert.Nil(t, toAlice.CompatibilityScore)
	assert.Equal(t, "You matched with bobby!", toAlice.Message)

	toBob := envs[1].Payload.(domain.MutualMatch)
	assert.Equal(t, "bob", envs[1].RecipientID)
	assert.Equal(t, "alice", toBob.MatchedUserID)
	require.NotNil(t, toBob.CompatibilityScore)
	assert.Equal(t, score, *toBob.CompatibilityScore)
	assert.NotEqual(t, envs[0].ID, envs[1].ID)
}

func TestOnTransition_NoopAndUnlikeEmitNothing(t *testing.T) {
	now := time.Now().UTC()
	first := domain.ApplyLike(nil, nil, "alice", "bob", now, nil)

	again := domain.ApplyLike(first.Edge, nil, "alice", "bob", now, nil)
	assert.Empty(t, New().OnTransition(again, alice, bob, now))

	unlike := domain.ApplyUnlike(first.Edge, nil, "alice", "bob", now)
	assert.Empty(t, New().OnTransition(unlike, alice, bob, now))
}
