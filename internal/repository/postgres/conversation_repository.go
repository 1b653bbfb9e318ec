package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type conversationRow struct {
	ID             string         `db:"id"`
	ParticipantIDs pq.StringArray `db:"participant_ids"`
	CreatedAt      time.Time      `db:"created_at"`
}

type conversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository stores chat participant lists reported by the chat service.
func NewConversationRepository(db *sqlx.DB) repository.ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) CreateIfAbsent(ctx context.Context, c *domain.Conversation) (*domain.Conversation, error) {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
		INSERT INTO conversations (id, participant_ids, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, c.ID, pq.Array(c.ParticipantIDs), createdAt); err != nil {
		return nil, errors.Wrap(err, "insert conversation")
	}
	return r.Get(ctx, c.ID)
}

func (r *conversationRepository) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var row conversationRow
	query := `SELECT id, participant_ids, created_at FROM conversations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, errors.Wrap(err, "select conversation")
	}
	return &domain.Conversation{
		ID:             row.ID,
		ParticipantIDs: []string(row.ParticipantIDs),
		CreatedAt:      row.CreatedAt,
	}, nil
}
