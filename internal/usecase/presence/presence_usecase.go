package presence

import (
	"context"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"go.uber.org/zap"
)

// Enqueuer is satisfied by the notifier dispatcher.
type Enqueuer interface {
	Enqueue(deliveries ...domain.Delivery)
}

// PresenceUseCase announces online/offline transitions to a user's mutual matches.
type PresenceUseCase struct {
	store    repository.PresenceStore
	likeRepo repository.LikeRepository
	out      Enqueuer
	log      *zap.Logger
	now      func() time.Time
}

func NewPresenceUseCase(store repository.PresenceStore, likeRepo repository.LikeRepository, out Enqueuer, log *zap.Logger) *PresenceUseCase {
	return &PresenceUseCase{
		store:    store,
		likeRepo: likeRepo,
		out:      out,
		log:      log.Named("presence"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SessionOpened is called by the hub after a session authenticates.
func (uc *PresenceUseCase) SessionOpened(ctx context.Context, userID string) {
	n, err := uc.store.Incr(ctx, userID)
	if err != nil {
		uc.log.Warn("presence incr failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if n == 1 {
		uc.announce(ctx, userID, true)
	}
}

// SessionClosed is called by the hub after a session is unregistered.
func (uc *PresenceUseCase) SessionClosed(ctx context.Context, userID string) {
	n, err := uc.store.Decr(ctx, userID)
	if err != nil {
		uc.log.Warn("presence decr failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if n == 0 {
		uc.announce(ctx, userID, false)
	}
}

func (uc *PresenceUseCase) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := uc.store.Count(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (uc *PresenceUseCase) announce(ctx context.Context, userID string, online bool) {
	ids, err := uc.likeRepo.MutualIDs(ctx, userID)
	if err != nil {
		uc.log.Warn("failed to load mutual matches", zap.String("user_id", userID), zap.Error(err))
		return
	}

	now := uc.now()
	deliveries := make([]domain.Delivery, 0, len(ids))
	for _, id := range ids {
		env := domain.NewEnvelope(id, domain.UserStatus{UserID: userID, IsOnline: online}, now)
		deliveries = append(deliveries, domain.ToUser(env))
	}
	uc.out.Enqueue(deliveries...)
	uc.log.Debug("presence changed",
		zap.String("user_id", userID),
		zap.Bool("online", online),
		zap.Int("watchers", len(ids)),
	)
}
