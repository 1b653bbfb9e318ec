package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const likeColumns = `id, liker_id, liked_id, status, compatibility_score, explanations,
	created_at, liked_at, mutual_at, unmatched_at, updated_at`

type likeRow struct {
	ID                 string          `db:"id"`
	LikerID            string          `db:"liker_id"`
	LikedID            string          `db:"liked_id"`
	Status             string          `db:"status"`
	CompatibilityScore sql.NullFloat64 `db:"compatibility_score"`
	Explanations       pq.StringArray  `db:"explanations"`
	CreatedAt          time.Time       `db:"created_at"`
	LikedAt            time.Time       `db:"liked_at"`
	MutualAt           sql.NullTime    `db:"mutual_at"`
	UnmatchedAt        sql.NullTime    `db:"unmatched_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

func (r *likeRow) toDomain() *domain.LikeEdge {
	e := &domain.LikeEdge{
		ID:        r.ID,
		LikerID:   r.LikerID,
		LikedID:   r.LikedID,
		Status:    domain.LikeStatus(r.Status),
		CreatedAt: r.CreatedAt,
		LikedAt:   r.LikedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.CompatibilityScore.Valid {
		s := r.CompatibilityScore.Float64
		e.CompatibilityScore = &s
	}
	if len(r.Explanations) > 0 {
		e.Explanations = []string(r.Explanations)
	}
	if r.MutualAt.Valid {
		t := r.MutualAt.Time
		e.MutualAt = &t
	}
	if r.UnmatchedAt.Valid {
		t := r.UnmatchedAt.Time
		e.UnmatchedAt = &t
	}
	return e
}

func fromDomain(e *domain.LikeEdge) likeRow {
	row := likeRow{
		ID:           e.ID,
		LikerID:      e.LikerID,
		LikedID:      e.LikedID,
		Status:       string(e.Status),
		Explanations: pq.StringArray(e.Explanations),
		CreatedAt:    e.CreatedAt,
		LikedAt:      e.LikedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if row.Explanations == nil {
		row.Explanations = pq.StringArray{}
	}
	if e.CompatibilityScore != nil {
		row.CompatibilityScore = sql.NullFloat64{Float64: *e.CompatibilityScore, Valid: true}
	}
	if e.MutualAt != nil {
		row.MutualAt = sql.NullTime{Time: *e.MutualAt, Valid: true}
	}
	if e.UnmatchedAt != nil {
		row.UnmatchedAt = sql.NullTime{Time: *e.UnmatchedAt, Valid: true}
	}
	return row
}

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) repository.LikeRepository {
	return &likeRepository{db: db}
}

// InPairTx runs fn in one transaction holding a transaction-scoped advisory lock on
// the sorted pair key, so the two users of a pair never interleave their mutations.
func (r *likeRepository) InPairTx(ctx context.Context, a, b string, fn func(tx repository.PairTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin pair tx")
	}
	defer func() { _ = tx.Rollback() }()

	key := domain.NewMatchPair(a, b).Key()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return errors.Wrapf(err, "lock pair %s", key)
	}

	if err := fn(&pairTx{tx: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit pair tx")
}

func (r *likeRepository) GetEdge(ctx context.Context, likerID, likedID string) (*domain.LikeEdge, error) {
	return getEdge(ctx, r.db, likerID, likedID, false)
}

func (r *likeRepository) ListSent(ctx context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error) {
	return r.list(ctx,
		`liker_id = $1 AND status IN ('pending', 'mutual')`,
		`liked_at DESC`,
		userID, limit, offset,
	)
}

func (r *likeRepository) ListReceived(ctx context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error) {
	return r.list(ctx,
		`liked_id = $1 AND status IN ('pending', 'mutual')`,
		`liked_at DESC`,
		userID, limit, offset,
	)
}

func (r *likeRepository) ListMutual(ctx context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error) {
	return r.list(ctx,
		`liker_id = $1 AND status = 'mutual'`,
		`mutual_at DESC NULLS LAST`,
		userID, limit, offset,
	)
}

func (r *likeRepository) list(ctx context.Context, where, order, userID string, limit, offset int) ([]*domain.LikeEdge, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM likes WHERE `+where, userID); err != nil {
		return nil, 0, errors.Wrap(err, "count likes")
	}

	var rows []likeRow
	query := `SELECT ` + likeColumns + ` FROM likes WHERE ` + where + ` ORDER BY ` + order + ` LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, 0, errors.Wrap(err, "select likes")
	}

	edges := make([]*domain.LikeEdge, 0, len(rows))
	for i := range rows {
		edges = append(edges, rows[i].toDomain())
	}
	return edges, total, nil
}

func (r *likeRepository) MutualIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	query := `SELECT liked_id FROM likes WHERE liker_id = $1 AND status = 'mutual' ORDER BY liked_id`
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, errors.Wrap(err, "select mutual ids")
	}
	return ids, nil
}

func (r *likeRepository) Stats(ctx context.Context, userID string) (*domain.LikeStats, error) {
	var stats domain.LikeStats
	query := `
		SELECT
			COUNT(*) FILTER (WHERE liker_id = $1 AND status IN ('pending', 'mutual')) AS likes_sent,
			COUNT(*) FILTER (WHERE liked_id = $1 AND status IN ('pending', 'mutual')) AS likes_received,
			COUNT(*) FILTER (WHERE liker_id = $1 AND status = 'mutual')               AS mutual_matches,
			COUNT(*) FILTER (WHERE liked_id = $1 AND status = 'pending')              AS pending_likes
		FROM likes
		WHERE liker_id = $1 OR liked_id = $1
	`
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, errors.Wrap(err, "select like stats")
	}
	return &stats, nil
}

type pairTx struct {
	tx *sqlx.Tx
}

func (p *pairTx) GetEdge(ctx context.Context, likerID, likedID string) (*domain.LikeEdge, error) {
	return getEdge(ctx, p.tx, likerID, likedID, true)
}

func (p *pairTx) SaveEdge(ctx context.Context, edge *domain.LikeEdge) error {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	query := `
		INSERT INTO likes (` + likeColumns + `)
		VALUES (:id, :liker_id, :liked_id, :status, :compatibility_score, :explanations,
			:created_at, :liked_at, :mutual_at, :unmatched_at, :updated_at)
		ON CONFLICT (liker_id, liked_id) DO UPDATE SET
			status              = EXCLUDED.status,
			compatibility_score = COALESCE(likes.compatibility_score, EXCLUDED.compatibility_score),
			explanations        = CASE WHEN likes.compatibility_score IS NULL
			                           THEN EXCLUDED.explanations ELSE likes.explanations END,
			liked_at            = EXCLUDED.liked_at,
			mutual_at           = EXCLUDED.mutual_at,
			unmatched_at        = EXCLUDED.unmatched_at,
			updated_at          = EXCLUDED.updated_at
	`
	if _, err := p.tx.NamedExecContext(ctx, query, fromDomain(edge)); err != nil {
		return errors.Wrapf(err, "upsert like %s->%s", edge.LikerID, edge.LikedID)
	}
	return nil
}

func (p *pairTx) SaveNotification(ctx context.Context, n *domain.Notification) error {
	return insertNotification(ctx, p.tx, n)
}

func getEdge(ctx context.Context, q sqlx.QueryerContext, likerID, likedID string, forUpdate bool) (*domain.LikeEdge, error) {
	query := `SELECT ` + likeColumns + ` FROM likes WHERE liker_id = $1 AND liked_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var row likeRow
	if err := sqlx.GetContext(ctx, q, &row, query, likerID, likedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLikeNotFound
		}
		return nil, errors.Wrap(err, "select like")
	}
	return row.toDomain(), nil
}
