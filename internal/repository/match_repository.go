package repository

import (
	"context"

	"github.com/gdugdh24/matchcore/internal/domain"
)

// PairTx is the view of storage inside one pair-scoped transaction. Everything
// written through it commits or rolls back together.
type PairTx interface {
	// GetEdge returns domain.ErrLikeNotFound when the directed edge does not exist.
	GetEdge(ctx context.Context, likerID, likedID string) (*domain.LikeEdge, error)
	SaveEdge(ctx context.Context, edge *domain.LikeEdge) error
	SaveNotification(ctx context.Context, n *domain.Notification) error
}

type LikeRepository interface {
	// InPairTx serializes fn against every other mutation on the unordered pair {a, b}.
	// Distinct pairs run in parallel. A non-nil error from fn rolls everything back.
	InPairTx(ctx context.Context, a, b string, fn func(tx PairTx) error) error

	GetEdge(ctx context.Context, likerID, likedID string) (*domain.LikeEdge, error)
	ListSent(ctx context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error)
	ListReceived(ctx context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error)
	ListMutual(ctx context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error)
	MutualIDs(ctx context.Context, userID string) ([]string, error)
	Stats(ctx context.Context, userID string) (*domain.LikeStats, error)
}

type UserRepository interface {
	GetSummary(ctx context.Context, id string) (*domain.UserSummary, error)
	GetSummaries(ctx context.Context, ids []string) (map[string]*domain.UserSummary, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*domain.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type ConversationRepository interface {
	// CreateIfAbsent stores c unless the id is taken and returns the stored conversation.
	CreateIfAbsent(ctx context.Context, c *domain.Conversation) (*domain.Conversation, error)
	// Get returns domain.ErrConversationNotFound for unknown ids.
	Get(ctx context.Context, id string) (*domain.Conversation, error)
}

// PresenceStore counts live push sessions per user across nodes.
type PresenceStore interface {
	// Incr returns the session count after the increment.
	Incr(ctx context.Context, userID string) (int64, error)
	// Decr returns the session count after the decrement, or -1 when the user had
	// no sessions counted (the store never goes negative).
	Decr(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context, userID string) (int64, error)
}
