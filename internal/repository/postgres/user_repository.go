package postgres

import (
	"context"
	"database/sql"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const userColumns = `id, username, first_name, last_name, photo_url, age, location, bio, is_active`

type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository reads the profile summaries owned by the profile service.
func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetSummary(ctx context.Context, id string) (*domain.UserSummary, error) {
	var user domain.UserSummary
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = true`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "select user summary")
	}
	return &user, nil
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error) {
	out := make(map[string]*domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []*domain.UserSummary
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) AND is_active = true`
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "select user summaries")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}
