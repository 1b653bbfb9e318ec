package domain

import "time"

// MatchPair is the unordered pair {UserA, UserB} with UserA < UserB.
// It is derived from the two directed edges and never stored on its own.
type MatchPair struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}

func NewMatchPair(a, b string) MatchPair {
	if a > b {
		a, b = b, a
	}
	return MatchPair{UserA: a, UserB: b}
}

// Key is the lock/transaction scope for every mutation touching the pair.
func (p MatchPair) Key() string {
	return p.UserA + ":" + p.UserB
}

func (p MatchPair) HasUser(userID string) bool {
	return p.UserA == userID || p.UserB == userID
}

func (p MatchPair) GetOtherUserID(userID string) (string, bool) {
	if p.UserA == userID {
		return p.UserB, true
	}
	if p.UserB == userID {
		return p.UserA, true
	}
	return "", false
}

// Transition describes what a single pair mutation did to the two directed edges.
// Edge is the (liker -> liked) edge, Reverse the (liked -> liker) edge.
type Transition struct {
	Pair         MatchPair
	LikerID      string
	LikedID      string
	Edge         *LikeEdge
	Reverse      *LikeEdge
	Previous     *LikeStatus
	Changed      bool
	ReverseDirty bool
	// FreshPending is true when a new Pending cycle started on Edge.
	FreshPending bool
	// BecameMutual is true only for the Pending -> Mutual flip of this cycle.
	BecameMutual bool
	EndedMutual  bool
}

// ApplyLike runs the like state machine for liker -> liked. Inputs are not mutated.
//
//	nil/Unmatched -> Pending            (reverse edge inactive)
//	nil/Unmatched -> Mutual, reverse -> Mutual (reverse edge active)
//	Pending/Mutual -> no-op
func ApplyLike(fwd, rev *LikeEdge, likerID, likedID string, now time.Time, compat *Compatibility) Transition {
	t := Transition{
		Pair:    NewMatchPair(likerID, likedID),
		LikerID: likerID,
		LikedID: likedID,
		Edge:    fwd.Clone(),
		Reverse: rev.Clone(),
	}
	if fwd != nil {
		prev := fwd.Status
		t.Previous = &prev
	}
	if fwd.IsActive() {
		return t
	}

	edge := t.Edge
	if edge == nil {
		edge = &LikeEdge{
			LikerID:   likerID,
			LikedID:   likedID,
			CreatedAt: now,
		}
	}
	edge.Status = LikeStatusPending
	edge.LikedAt = now
	edge.UpdatedAt = now
	edge.MutualAt = nil
	edge.UnmatchedAt = nil
	if edge.CompatibilityScore == nil && compat != nil {
		score := compat.Score
		edge.CompatibilityScore = &score
		edge.Explanations = append([]string(nil), compat.Explanations...)
	}
	t.Edge = edge
	t.Changed = true

	if t.Reverse.IsActive() {
		mutualAt := now
		edge.Status = LikeStatusMutual
		edge.MutualAt = &mutualAt
		if t.Reverse.Status != LikeStatusMutual {
			revAt := now
			t.Reverse.Status = LikeStatusMutual
			t.Reverse.MutualAt = &revAt
			t.Reverse.UpdatedAt = now
		}
		t.ReverseDirty = true
		t.BecameMutual = true
		return t
	}

	t.FreshPending = true
	return t
}

// ApplyUnlike moves liker -> liked to Unmatched. When the pair was mutual the reverse
// edge is unmatched too, so a later like starts a fresh Pending cycle.
// Unliking an absent or inactive edge is a no-op.
func ApplyUnlike(fwd, rev *LikeEdge, likerID, likedID string, now time.Time) Transition {
	t := Transition{
		Pair:    NewMatchPair(likerID, likedID),
		LikerID: likerID,
		LikedID: likedID,
		Edge:    fwd.Clone(),
		Reverse: rev.Clone(),
	}
	if fwd != nil {
		prev := fwd.Status
		t.Previous = &prev
	}
	if !fwd.IsActive() {
		return t
	}

	wasMutual := fwd.Status == LikeStatusMutual
	unmatch(t.Edge, now)
	t.Changed = true
	if wasMutual {
		t.EndedMutual = true
		if t.Reverse.IsActive() {
			unmatch(t.Reverse, now)
			t.ReverseDirty = true
		}
	}
	return t
}

// ApplyUnmatch unmatches both edges of an active mutual pair.
func ApplyUnmatch(fwd, rev *LikeEdge, userID, otherID string, now time.Time) (Transition, error) {
	if !fwd.IsMutual() || !rev.IsMutual() {
		return Transition{}, ErrMatchNotFound
	}
	prev := fwd.Status
	t := Transition{
		Pair:         NewMatchPair(userID, otherID),
		LikerID:      userID,
		LikedID:      otherID,
		Edge:         fwd.Clone(),
		Reverse:      rev.Clone(),
		Previous:     &prev,
		Changed:      true,
		ReverseDirty: true,
		EndedMutual:  true,
	}
	unmatch(t.Edge, now)
	unmatch(t.Reverse, now)
	return t, nil
}

func unmatch(e *LikeEdge, now time.Time) {
	at := now
	e.Status = LikeStatusUnmatched
	e.UnmatchedAt = &at
	e.UpdatedAt = now
}
