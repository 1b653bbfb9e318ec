package memory

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/google/uuid"
)

const pairStripes = 64

type edgeKey struct {
	liker string
	liked string
}

// LikeRepository keeps edges in process. Pair transactions take one of a fixed set
// of striped mutexes chosen by the unordered pair key, so unrelated pairs rarely contend.
type LikeRepository struct {
	stripes [pairStripes]sync.Mutex

	mu    sync.RWMutex
	edges map[edgeKey]*domain.LikeEdge

	notifications *NotificationRepository
}

func NewLikeRepository(notifications *NotificationRepository) *LikeRepository {
	return &LikeRepository{
		edges:         make(map[edgeKey]*domain.LikeEdge),
		notifications: notifications,
	}
}

var _ repository.LikeRepository = (*LikeRepository)(nil)

func (r *LikeRepository) stripe(a, b string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(domain.NewMatchPair(a, b).Key()))
	return &r.stripes[h.Sum32()%pairStripes]
}

func (r *LikeRepository) InPairTx(ctx context.Context, a, b string, fn func(tx repository.PairTx) error) error {
	lock := r.stripe(a, b)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &pairTx{repo: r, staged: make(map[edgeKey]*domain.LikeEdge)}
	if err := fn(tx); err != nil {
		return err
	}

	r.mu.Lock()
	for k, e := range tx.staged {
		r.edges[k] = e
	}
	r.mu.Unlock()

	if r.notifications != nil {
		for _, n := range tx.notifications {
			if err := r.notifications.Create(ctx, n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *LikeRepository) GetEdge(_ context.Context, likerID, likedID string) (*domain.LikeEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.edges[edgeKey{likerID, likedID}]
	if !ok {
		return nil, domain.ErrLikeNotFound
	}
	return e.Clone(), nil
}

func (r *LikeRepository) ListSent(_ context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error) {
	edges := r.filter(func(e *domain.LikeEdge) bool {
		return e.LikerID == userID && e.IsActive()
	})
	sortByLikedAt(edges)
	return paginate(edges, limit, offset), len(edges), nil
}

func (r *LikeRepository) ListReceived(_ context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error) {
	edges := r.filter(func(e *domain.LikeEdge) bool {
		return e.LikedID == userID && e.IsActive()
	})
	sortByLikedAt(edges)
	return paginate(edges, limit, offset), len(edges), nil
}

func (r *LikeRepository) ListMutual(_ context.Context, userID string, limit, offset int) ([]*domain.LikeEdge, int, error) {
	edges := r.filter(func(e *domain.LikeEdge) bool {
		return e.LikerID == userID && e.IsMutual()
	})
	sort.SliceStable(edges, func(i, j int) bool {
		return mutualAt(edges[i]).After(mutualAt(edges[j]))
	})
	return paginate(edges, limit, offset), len(edges), nil
}

func (r *LikeRepository) MutualIDs(_ context.Context, userID string) ([]string, error) {
	edges := r.filter(func(e *domain.LikeEdge) bool {
		return e.LikerID == userID && e.IsMutual()
	})
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.LikedID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *LikeRepository) Stats(_ context.Context, userID string) (*domain.LikeStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var st domain.LikeStats
	for _, e := range r.edges {
		if !e.IsActive() {
			continue
		}
		if e.LikerID == userID {
			st.LikesSent++
			if e.IsMutual() {
				st.MutualMatches++
			}
		}
		if e.LikedID == userID {
			st.LikesReceived++
			if e.Status == domain.LikeStatusPending {
				st.PendingLikes++
			}
		}
	}
	return &st, nil
}

func (r *LikeRepository) filter(keep func(e *domain.LikeEdge) bool) []*domain.LikeEdge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.LikeEdge
	for _, e := range r.edges {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	return out
}

type pairTx struct {
	repo          *LikeRepository
	staged        map[edgeKey]*domain.LikeEdge
	notifications []*domain.Notification
}

func (tx *pairTx) GetEdge(ctx context.Context, likerID, likedID string) (*domain.LikeEdge, error) {
	if e, ok := tx.staged[edgeKey{likerID, likedID}]; ok {
		return e.Clone(), nil
	}
	return tx.repo.GetEdge(ctx, likerID, likedID)
}

func (tx *pairTx) SaveEdge(_ context.Context, edge *domain.LikeEdge) error {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	tx.staged[edgeKey{edge.LikerID, edge.LikedID}] = edge.Clone()
	return nil
}

func (tx *pairTx) SaveNotification(_ context.Context, n *domain.Notification) error {
	tx.notifications = append(tx.notifications, n)
	return nil
}

func sortByLikedAt(edges []*domain.LikeEdge) {
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].LikedAt.After(edges[j].LikedAt)
	})
}

func mutualAt(e *domain.LikeEdge) time.Time {
	if e.MutualAt != nil {
		return *e.MutualAt
	}
	return e.LikedAt
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
