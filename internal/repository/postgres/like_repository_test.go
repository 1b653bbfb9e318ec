package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockQuery = `SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestInPairTx_LocksSortedPairAndCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice:bob").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO likes .* ON CONFLICT \(liker_id, liked_id\) DO UPDATE SET ` +
		`status = EXCLUDED.status, compatibility_score = COALESCE\(likes.compatibility_score, EXCLUDED.compatibility_score\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.InPairTx(context.Background(), "bob", "alice", func(tx repository.PairTx) error {
		return tx.SaveEdge(context.Background(), &domain.LikeEdge{
			LikerID:   "bob",
			LikedID:   "alice",
			Status:    domain.LikeStatusPending,
			CreatedAt: now,
			LikedAt:   now,
			UpdatedAt: now,
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInPairTx_RollsBackWhenFnFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db)
	errBoom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs("alice:bob").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.InPairTx(context.Background(), "alice", "bob", func(repository.PairTx) error {
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInPairTx_LockFailureSkipsFn(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	called := false
	err := repo.InPairTx(context.Background(), "alice", "bob", func(repository.PairTx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPairTx_GetEdgeLocksRowAndMapsMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLikeRepository(db)
	score := 87.5
	likedAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "liker_id", "liked_id", "status", "compatibility_score", "explanations",
		"created_at", "liked_at", "mutual_at", "unmatched_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM likes WHERE liker_id = \$1 AND liked_id = \$2 FOR UPDATE`).
		WithArgs("alice", "bob").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"e-1", "alice", "bob", "mutual", score, []byte(`{"same city","both early risers"}`),
			likedAt, likedAt, likedAt, nil, likedAt,
		))
	mock.ExpectQuery(`FROM likes WHERE liker_id = \$1 AND liked_id = \$2 FOR UPDATE`).
		WithArgs("bob", "alice").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectCommit()

	err := repo.InPairTx(context.Background(), "alice", "bob", func(tx repository.PairTx) error {
		edge, err := tx.GetEdge(context.Background(), "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, domain.LikeStatusMutual, edge.Status)
		require.NotNil(t, edge.CompatibilityScore)
		assert.Equal(t, score, *edge.CompatibilityScore)
		assert.Equal(t, []string{"same city", "both early risers"}, edge.Explanations)
		require.NotNil(t, edge.MutualAt)
		assert.Nil(t, edge.UnmatchedAt)

		_, err = tx.GetEdge(context.Background(), "bob", "alice")
		assert.ErrorIs(t, err, domain.ErrLikeNotFound)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationRepository_CreateIfAbsentReturnsStored(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConversationRepository(db)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO conversations .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs("chat-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, participant_ids, created_at FROM conversations WHERE id = \$1`).
		WithArgs("chat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_ids", "created_at"}).
			AddRow("chat-1", []byte(`{alice,bob}`), created))

	conv, err := repo.CreateIfAbsent(context.Background(), &domain.Conversation{
		ID:             "chat-1",
		ParticipantIDs: []string{"eve", "alice"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, conv.ParticipantIDs, "an existing conversation is not overwritten")
	assert.True(t, conv.HasParticipant("bob"))

	mock.ExpectQuery(`FROM conversations WHERE id = \$1`).
		WithArgs("chat-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "participant_ids", "created_at"}))
	_, err = repo.Get(context.Background(), "chat-2")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
