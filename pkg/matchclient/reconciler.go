// Package matchclient keeps a client's local view of likes and matches
// consistent with the server across optimistic writes and pushed envelopes.
package matchclient

import (
	"context"
	"sort"
	"sync"

	"github.com/gdugdh24/matchcore/pkg/wire"
)

type EventKind string

const (
	// EventChanged fires after any cache change for UserID.
	EventChanged EventKind = "changed"
	// EventCelebrate fires once per mutual cycle, whichever path saw it first.
	EventCelebrate EventKind = "celebrate"
	EventNewLike   EventKind = "new_like"
	EventPresence  EventKind = "presence"
	// EventEnvelope passes through envelopes the cache does not interpret.
	EventEnvelope EventKind = "envelope"
)

type Event struct {
	Kind     EventKind
	UserID   string
	Envelope *wire.Envelope
}

// truth is the last state the server confirmed for one counterpart.
type truth struct {
	liked  bool
	mutual bool
}

// Reconciler owns the local cache. Every like/unlike bumps a per-id generation
// before its optimistic write; a failed mutation rolls back only if no newer
// intent for the same id has been recorded since.
type Reconciler struct {
	api API

	mu        sync.Mutex
	liked     map[string]bool
	likedBy   map[string]bool
	mutual    map[string]bool
	online    map[string]bool
	confirmed map[string]truth
	gen       map[string]uint64
	inflight  map[string]int
	intent    map[string]bool
	locks     map[string]chan struct{}

	subMu  sync.RWMutex
	subs   map[int]func(Event)
	nextID int
}

func NewReconciler(api API) *Reconciler {
	return &Reconciler{
		api:       api,
		liked:     make(map[string]bool),
		likedBy:   make(map[string]bool),
		mutual:    make(map[string]bool),
		online:    make(map[string]bool),
		confirmed: make(map[string]truth),
		gen:       make(map[string]uint64),
		inflight:  make(map[string]int),
		intent:    make(map[string]bool),
		locks:     make(map[string]chan struct{}),
		subs:      make(map[int]func(Event)),
	}
}

// Subscribe registers fn for cache events and returns its cancel func.
// fn runs on the goroutine that caused the event and must not block.
func (r *Reconciler) Subscribe(fn func(Event)) func() {
	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

func (r *Reconciler) emit(ev Event) {
	r.subMu.RLock()
	fns := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (r *Reconciler) HasLiked(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liked[userID]
}

func (r *Reconciler) HasLikedMe(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.likedBy[userID]
}

func (r *Reconciler) IsMutual(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mutual[userID]
}

func (r *Reconciler) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

// Mutual returns the matched ids, sorted.
func (r *Reconciler) Mutual() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.mutual))
	for id := range r.mutual {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Like marks userID liked right away, then asks the server. Calls for the same
// id are serialized; calls for different ids are not.
func (r *Reconciler) Like(ctx context.Context, userID string) (*LikeResponse, error) {
	g := r.begin(userID, true, func() {
		r.liked[userID] = true
	})
	defer r.finish(userID)

	unlock, err := r.lockID(ctx, userID)
	if err != nil {
		r.rollback(userID, g)
		return nil, err
	}
	defer unlock()

	res, err := r.api.Like(ctx, userID)
	if err != nil {
		r.rollback(userID, g)
		return nil, err
	}

	r.mu.Lock()
	t := r.confirmed[userID]
	t.liked = true
	if res.IsMutual {
		t.mutual = true
	}
	r.confirmed[userID] = t
	current := r.gen[userID] == g
	r.mu.Unlock()

	if res.IsMutual && current {
		r.mergeMutual(userID)
	}
	return res, nil
}

// Unlike clears liked and mutual right away, then asks the server.
func (r *Reconciler) Unlike(ctx context.Context, userID string) error {
	g := r.begin(userID, false, func() {
		delete(r.liked, userID)
		delete(r.mutual, userID)
	})
	defer r.finish(userID)

	unlock, err := r.lockID(ctx, userID)
	if err != nil {
		r.rollback(userID, g)
		return err
	}
	defer unlock()

	if err := r.api.Unlike(ctx, userID); err != nil {
		r.rollback(userID, g)
		return err
	}

	// Ending a mutual match also retires the counterpart's edge on the server.
	r.mu.Lock()
	ended := r.confirmed[userID].mutual && r.likedBy[userID]
	r.confirmed[userID] = truth{}
	if ended {
		delete(r.likedBy, userID)
	}
	r.mu.Unlock()

	if ended {
		r.emit(Event{Kind: EventChanged, UserID: userID})
	}
	return nil
}

// begin records a new intent for userID and applies its optimistic write.
func (r *Reconciler) begin(userID string, like bool, apply func()) uint64 {
	r.mu.Lock()
	r.gen[userID]++
	g := r.gen[userID]
	r.inflight[userID]++
	r.intent[userID] = like
	apply()
	r.mu.Unlock()

	r.emit(Event{Kind: EventChanged, UserID: userID})
	return g
}

func (r *Reconciler) finish(userID string) {
	r.mu.Lock()
	if r.inflight[userID]--; r.inflight[userID] <= 0 {
		delete(r.inflight, userID)
		delete(r.intent, userID)
	}
	r.mu.Unlock()
}

// rollback restores the last confirmed state unless a newer intent superseded g.
func (r *Reconciler) rollback(userID string, g uint64) {
	r.mu.Lock()
	if r.gen[userID] != g {
		r.mu.Unlock()
		return
	}
	t := r.confirmed[userID]
	setFlag(r.liked, userID, t.liked)
	setFlag(r.mutual, userID, t.mutual)
	r.mu.Unlock()

	r.emit(Event{Kind: EventChanged, UserID: userID})
}

func (r *Reconciler) lockID(ctx context.Context, userID string) (func(), error) {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = make(chan struct{}, 1)
		r.locks[userID] = l
	}
	r.mu.Unlock()

	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// mergeMutual records a mutual match and celebrates only if it was not
// already known. A pending unlike keeps the cache as the user left it.
func (r *Reconciler) mergeMutual(userID string) {
	r.mu.Lock()
	if r.inflight[userID] > 0 && !r.intent[userID] {
		r.confirmed[userID] = truth{liked: true, mutual: true}
		r.likedBy[userID] = true
		r.mu.Unlock()
		return
	}
	was := r.mutual[userID]
	r.mutual[userID] = true
	r.liked[userID] = true
	r.likedBy[userID] = true
	r.confirmed[userID] = truth{liked: true, mutual: true}
	r.mu.Unlock()

	if was {
		return
	}
	r.emit(Event{Kind: EventChanged, UserID: userID})
	r.emit(Event{Kind: EventCelebrate, UserID: userID})
}

// HandleEnvelope merges one pushed envelope. Delivery is at-least-once, so
// every branch is idempotent.
func (r *Reconciler) HandleEnvelope(env wire.Envelope) {
	switch p := env.Payload.(type) {
	case wire.MutualMatch:
		r.mergeMutual(p.MatchedUserID)
	case wire.NewLike:
		r.mu.Lock()
		was := r.likedBy[p.LikerID]
		r.likedBy[p.LikerID] = true
		r.mu.Unlock()
		if !was {
			r.emit(Event{Kind: EventNewLike, UserID: p.LikerID, Envelope: &env})
		}
	case wire.UserStatus:
		r.mu.Lock()
		was := r.online[p.UserID]
		setFlag(r.online, p.UserID, p.IsOnline)
		r.mu.Unlock()
		if was != p.IsOnline {
			r.emit(Event{Kind: EventPresence, UserID: p.UserID, Envelope: &env})
		}
	case wire.Connection:
	default:
		r.emit(Event{Kind: EventEnvelope, Envelope: &env})
	}
}

// Rebuild replaces the cache with server truth, e.g. after a reconnect. Ids
// with a mutation in flight keep their optimistic state. Nothing is celebrated.
func (r *Reconciler) Rebuild(ctx context.Context) error {
	snap, err := r.api.Snapshot(ctx)
	if err != nil {
		return err
	}

	liked := toSet(snap.Liked)
	mutual := toSet(snap.Mutual)

	r.mu.Lock()
	confirmed := make(map[string]truth, len(liked))
	for id := range liked {
		confirmed[id] = truth{liked: true, mutual: mutual[id]}
	}
	for id := range mutual {
		confirmed[id] = truth{liked: true, mutual: true}
	}
	for id := range r.inflight {
		if t, ok := r.confirmed[id]; ok {
			confirmed[id] = t
		} else {
			delete(confirmed, id)
		}
	}

	nextLiked := make(map[string]bool, len(confirmed))
	nextMutual := make(map[string]bool, len(mutual))
	for id, t := range confirmed {
		setFlag(nextLiked, id, t.liked)
		setFlag(nextMutual, id, t.mutual)
	}
	for id := range r.inflight {
		setFlag(nextLiked, id, r.liked[id])
		setFlag(nextMutual, id, r.mutual[id])
	}

	r.confirmed = confirmed
	r.liked = nextLiked
	r.mutual = nextMutual
	r.likedBy = toSet(snap.LikedBy)
	for id := range mutual {
		r.likedBy[id] = true
	}
	r.mu.Unlock()

	r.emit(Event{Kind: EventChanged})
	return nil
}

func setFlag(m map[string]bool, id string, v bool) {
	if v {
		m[id] = true
	} else {
		delete(m, id)
	}
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
