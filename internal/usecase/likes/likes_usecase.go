package likes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/infrastructure/metrics"
	"github.com/gdugdh24/matchcore/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Scorer is the external compatibility collaborator. Failures are tolerated:
// the edge is stored without a score.
type Scorer interface {
	Score(ctx context.Context, a, b *domain.UserSummary) (*domain.Compatibility, error)
}

// TransitionNotifier picks the envelopes for a transition inside the pair transaction.
type TransitionNotifier interface {
	OnTransition(t domain.Transition, liker, liked *domain.UserSummary, now time.Time) []domain.Envelope
}

// Dispatcher delivers committed envelopes without blocking the caller.
type Dispatcher interface {
	Dispatch(envs ...domain.Envelope)
}

type LikeUseCase struct {
	likeRepo   repository.LikeRepository
	userRepo   repository.UserRepository
	scorer     Scorer
	notifier   TransitionNotifier
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewLikeUseCase(
	likeRepo repository.LikeRepository,
	userRepo repository.UserRepository,
	scorer Scorer,
	notifier TransitionNotifier,
	dispatcher Dispatcher,
	log *zap.Logger,
) *LikeUseCase {
	return &LikeUseCase{
		likeRepo:   likeRepo,
		userRepo:   userRepo,
		scorer:     scorer,
		notifier:   notifier,
		dispatcher: dispatcher,
		log:        log.Named("likes"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// LikeResult is returned by Like
type LikeResult struct {
	Like                *domain.LikeEdge    `json:"like"`
	IsMutual            bool                `json:"is_mutual"`
	WasMutualTransition bool                `json:"mutual_transition"`
	MatchedUser         *domain.UserSummary `json:"matched_user,omitempty"`
}

// UnlikeResult is returned by Unlike. Removed is nil when there was nothing to remove.
type UnlikeResult struct {
	Removed   *domain.LikeEdge `json:"removed"`
	WasMutual bool             `json:"was_mutual"`
}

// Like records likerID's interest in likedID. Re-liking an active edge is a no-op
// returning the stored edge. Liking someone who already likes you flips both edges
// to Mutual in the same pair transaction.
func (uc *LikeUseCase) Like(ctx context.Context, likerID, likedID string) (*LikeResult, error) {
	liker, liked, err := uc.loadPair(ctx, likerID, likedID)
	if err != nil {
		metrics.LikeMutations.WithLabelValues("like", "rejected").Inc()
		return nil, err
	}

	compat := uc.score(ctx, liker, liked)
	now := uc.now()

	var (
		t    domain.Transition
		envs []domain.Envelope
	)
	err = uc.likeRepo.InPairTx(ctx, likerID, likedID, func(tx repository.PairTx) error {
		fwd, rev, err := loadEdges(ctx, tx, likerID, likedID)
		if err != nil {
			return err
		}

		t = domain.ApplyLike(fwd, rev, likerID, likedID, now, compat)
		if !t.Changed {
			return nil
		}
		if err := saveTransition(ctx, tx, t); err != nil {
			return err
		}

		envs = uc.notifier.OnTransition(t, liker, liked, now)
		return saveNotifications(ctx, tx, envs)
	})
	if err != nil {
		metrics.LikeMutations.WithLabelValues("like", "error").Inc()
		return nil, fmt.Errorf("failed to like user: %w", err)
	}

	uc.dispatcher.Dispatch(envs...)

	result := &LikeResult{
		Like:                t.Edge,
		IsMutual:            t.Edge.IsMutual(),
		WasMutualTransition: t.BecameMutual,
	}
	if result.IsMutual {
		result.MatchedUser = liked
	}

	switch {
	case t.BecameMutual:
		metrics.MutualMatches.Inc()
		metrics.LikeMutations.WithLabelValues("like", "mutual").Inc()
		uc.log.Info("mutual match",
			zap.String("user_id", likerID),
			zap.String("target_id", likedID),
		)
	case t.Changed:
		metrics.LikeMutations.WithLabelValues("like", "pending").Inc()
		uc.log.Debug("like recorded", zap.String("user_id", likerID), zap.String("target_id", likedID))
	default:
		metrics.LikeMutations.WithLabelValues("like", "noop").Inc()
	}
	return result, nil
}

// Unlike withdraws likerID's interest. A mutual pair ends on both sides. Unliking an
// absent or already unmatched edge succeeds with a nil Removed edge.
func (uc *LikeUseCase) Unlike(ctx context.Context, likerID, likedID string) (*UnlikeResult, error) {
	if _, _, err := uc.loadPair(ctx, likerID, likedID); err != nil {
		metrics.LikeMutations.WithLabelValues("unlike", "rejected").Inc()
		return nil, err
	}

	now := uc.now()
	var t domain.Transition
	err := uc.likeRepo.InPairTx(ctx, likerID, likedID, func(tx repository.PairTx) error {
		fwd, rev, err := loadEdges(ctx, tx, likerID, likedID)
		if err != nil {
			return err
		}
		t = domain.ApplyUnlike(fwd, rev, likerID, likedID, now)
		if !t.Changed {
			return nil
		}
		return saveTransition(ctx, tx, t)
	})
	if err != nil {
		metrics.LikeMutations.WithLabelValues("unlike", "error").Inc()
		return nil, fmt.Errorf("failed to unlike user: %w", err)
	}

	if !t.Changed {
		metrics.LikeMutations.WithLabelValues("unlike", "noop").Inc()
		return &UnlikeResult{}, nil
	}

	metrics.LikeMutations.WithLabelValues("unlike", "removed").Inc()
	uc.log.Debug("like withdrawn",
		zap.String("user_id", likerID),
		zap.String("target_id", likedID),
		zap.Bool("was_mutual", t.EndedMutual),
	)
	return &UnlikeResult{Removed: t.Edge, WasMutual: t.EndedMutual}, nil
}

// Unmatch ends an active mutual match from either side.
func (uc *LikeUseCase) Unmatch(ctx context.Context, userID, otherID string) error {
	if _, _, err := uc.loadPair(ctx, userID, otherID); err != nil {
		return err
	}

	now := uc.now()
	err := uc.likeRepo.InPairTx(ctx, userID, otherID, func(tx repository.PairTx) error {
		fwd, rev, err := loadEdges(ctx, tx, userID, otherID)
		if err != nil {
			return err
		}
		t, err := domain.ApplyUnmatch(fwd, rev, userID, otherID, now)
		if err != nil {
			return err
		}
		return saveTransition(ctx, tx, t)
	})
	if errors.Is(err, domain.ErrMatchNotFound) {
		metrics.LikeMutations.WithLabelValues("unmatch", "rejected").Inc()
		return err
	}
	if err != nil {
		metrics.LikeMutations.WithLabelValues("unmatch", "error").Inc()
		return fmt.Errorf("failed to unmatch: %w", err)
	}

	metrics.LikeMutations.WithLabelValues("unmatch", "removed").Inc()
	uc.log.Info("match ended", zap.String("user_id", userID), zap.String("target_id", otherID))
	return nil
}

// GetStatus returns the pairwise view from userID's side.
func (uc *LikeUseCase) GetStatus(ctx context.Context, userID, otherID string) (*domain.PairStatus, error) {
	if userID == otherID {
		return nil, domain.ErrInvalidSelfReference
	}
	mine, err := optionalEdge(uc.likeRepo.GetEdge(ctx, userID, otherID))
	if err != nil {
		return nil, fmt.Errorf("failed to get like status: %w", err)
	}
	theirs, err := optionalEdge(uc.likeRepo.GetEdge(ctx, otherID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get like status: %w", err)
	}
	st := domain.NewPairStatus(mine, theirs)
	return &st, nil
}

func (uc *LikeUseCase) ListSent(ctx context.Context, userID string, limit, offset int) ([]*domain.RelationshipItem, int, error) {
	limit, offset = NormalizePage(limit, offset)
	edges, total, err := uc.likeRepo.ListSent(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sent likes: %w", err)
	}
	items, err := uc.toItems(ctx, edges, func(e *domain.LikeEdge) string { return e.LikedID })
	return items, total, err
}

func (uc *LikeUseCase) ListReceived(ctx context.Context, userID string, limit, offset int) ([]*domain.RelationshipItem, int, error) {
	limit, offset = NormalizePage(limit, offset)
	edges, total, err := uc.likeRepo.ListReceived(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list received likes: %w", err)
	}
	items, err := uc.toItems(ctx, edges, func(e *domain.LikeEdge) string { return e.LikerID })
	return items, total, err
}

func (uc *LikeUseCase) ListMutual(ctx context.Context, userID string, limit, offset int) ([]*domain.RelationshipItem, int, error) {
	limit, offset = NormalizePage(limit, offset)
	edges, total, err := uc.likeRepo.ListMutual(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mutual matches: %w", err)
	}
	items, err := uc.toItems(ctx, edges, func(e *domain.LikeEdge) string { return e.LikedID })
	return items, total, err
}

func (uc *LikeUseCase) Stats(ctx context.Context, userID string) (*domain.LikeStats, error) {
	stats, err := uc.likeRepo.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get like stats: %w", err)
	}
	return stats, nil
}

// NormalizePage clamps limit to 1..MaxLimit (DefaultLimit when unset) and offset to >= 0.
func NormalizePage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (uc *LikeUseCase) loadPair(ctx context.Context, userID, otherID string) (*domain.UserSummary, *domain.UserSummary, error) {
	if userID == "" || otherID == "" {
		return nil, nil, domain.ErrInvalidInput
	}
	if userID == otherID {
		return nil, nil, domain.ErrInvalidSelfReference
	}
	user, err := uc.userRepo.GetSummary(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	other, err := uc.userRepo.GetSummary(ctx, otherID)
	if err != nil {
		return nil, nil, err
	}
	return user, other, nil
}

// score skips the collaborator when the stored edge is already active or scored,
// since the score is immutable once set.
func (uc *LikeUseCase) score(ctx context.Context, liker, liked *domain.UserSummary) *domain.Compatibility {
	if uc.scorer == nil {
		return nil
	}
	existing, err := uc.likeRepo.GetEdge(ctx, liker.ID, liked.ID)
	if err == nil && (existing.IsActive() || existing.CompatibilityScore != nil) {
		return nil
	}

	compat, err := uc.scorer.Score(ctx, liker, liked)
	if err != nil {
		uc.log.Warn("compatibility scoring failed",
			zap.String("user_id", liker.ID),
			zap.String("target_id", liked.ID),
			zap.Error(err),
		)
		return nil
	}
	if compat != nil {
		compat.Score = clampScore(compat.Score)
	}
	return compat
}

func (uc *LikeUseCase) toItems(ctx context.Context, edges []*domain.LikeEdge, counterpart func(*domain.LikeEdge) string) ([]*domain.RelationshipItem, error) {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, counterpart(e))
	}
	users, err := uc.userRepo.GetSummaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load user summaries: %w", err)
	}

	items := make([]*domain.RelationshipItem, 0, len(edges))
	for _, e := range edges {
		item := &domain.RelationshipItem{
			EdgeID:             e.ID,
			UserID:             counterpart(e),
			Status:             e.Status,
			LikedAt:            e.LikedAt.Format(time.RFC3339),
			CompatibilityScore: e.CompatibilityScore,
			Explanations:       e.Explanations,
			User:               users[counterpart(e)],
		}
		if e.MutualAt != nil {
			at := e.MutualAt.Format(time.RFC3339)
			item.MutualAt = &at
		}
		items = append(items, item)
	}
	return items, nil
}

func loadEdges(ctx context.Context, tx repository.PairTx, a, b string) (*domain.LikeEdge, *domain.LikeEdge, error) {
	fwd, err := optionalEdge(tx.GetEdge(ctx, a, b))
	if err != nil {
		return nil, nil, err
	}
	rev, err := optionalEdge(tx.GetEdge(ctx, b, a))
	if err != nil {
		return nil, nil, err
	}
	return fwd, rev, nil
}

func saveTransition(ctx context.Context, tx repository.PairTx, t domain.Transition) error {
	if err := tx.SaveEdge(ctx, t.Edge); err != nil {
		return err
	}
	if t.ReverseDirty {
		return tx.SaveEdge(ctx, t.Reverse)
	}
	return nil
}

func saveNotifications(ctx context.Context, tx repository.PairTx, envs []domain.Envelope) error {
	for _, env := range envs {
		n, err := domain.NotificationFromEnvelope(env)
		if err != nil {
			return err
		}
		if n == nil {
			continue
		}
		if err := tx.SaveNotification(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func optionalEdge(e *domain.LikeEdge, err error) (*domain.LikeEdge, error) {
	if errors.Is(err, domain.ErrLikeNotFound) {
		return nil, nil
	}
	return e, err
}

func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 100:
		return 100
	}
	return s
}
