package domain

import "time"

type LikeStatus string

const (
	LikeStatusPending   LikeStatus = "pending"
	LikeStatusMutual    LikeStatus = "mutual"
	LikeStatusUnmatched LikeStatus = "unmatched"
)

// IsActive reports whether the edge currently expresses interest.
func (s LikeStatus) IsActive() bool {
	return s == LikeStatusPending || s == LikeStatusMutual
}

// LikeEdge is a directed record of one user expressing interest in another.
// At most one edge exists per ordered (LikerID, LikedID) pair; unliking moves it
// to Unmatched instead of deleting it.
type LikeEdge struct {
	ID                 string     `json:"id" db:"id"`
	LikerID            string     `json:"liker_id" db:"liker_id"`
	LikedID            string     `json:"liked_id" db:"liked_id"`
	Status             LikeStatus `json:"status" db:"status"`
	CompatibilityScore *float64   `json:"compatibility_score" db:"compatibility_score"`
	Explanations       []string   `json:"explanations,omitempty" db:"explanations"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	LikedAt            time.Time  `json:"liked_at" db:"liked_at"`
	MutualAt           *time.Time `json:"mutual_at" db:"mutual_at"`
	UnmatchedAt        *time.Time `json:"unmatched_at,omitempty" db:"unmatched_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

func (e *LikeEdge) IsActive() bool {
	return e != nil && e.Status.IsActive()
}

func (e *LikeEdge) IsMutual() bool {
	return e != nil && e.Status == LikeStatusMutual
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (e *LikeEdge) Clone() *LikeEdge {
	if e == nil {
		return nil
	}
	c := *e
	if e.CompatibilityScore != nil {
		s := *e.CompatibilityScore
		c.CompatibilityScore = &s
	}
	if e.Explanations != nil {
		c.Explanations = append([]string(nil), e.Explanations...)
	}
	if e.MutualAt != nil {
		t := *e.MutualAt
		c.MutualAt = &t
	}
	if e.UnmatchedAt != nil {
		t := *e.UnmatchedAt
		c.UnmatchedAt = &t
	}
	return &c
}

// Compatibility is the output of the external scoring collaborator.
type Compatibility struct {
	Score        float64  `json:"score"`
	Explanations []string `json:"explanations"`
}

// PairStatus is the pairwise view returned by GetStatus.
type PairStatus struct {
	ILiked          bool        `json:"i_liked"`
	TheyLiked       bool        `json:"they_liked"`
	IsMutual        bool        `json:"is_mutual"`
	MyLikeStatus    *LikeStatus `json:"my_like_status"`
	TheirLikeStatus *LikeStatus `json:"their_like_status"`
}

func NewPairStatus(mine, theirs *LikeEdge) PairStatus {
	st := PairStatus{
		ILiked:    mine.IsActive(),
		TheyLiked: theirs.IsActive(),
		IsMutual:  mine.IsMutual() && theirs.IsMutual(),
	}
	if mine != nil {
		s := mine.Status
		st.MyLikeStatus = &s
	}
	if theirs != nil {
		s := theirs.Status
		st.TheirLikeStatus = &s
	}
	return st
}

// LikeStats counts active edges only.
type LikeStats struct {
	LikesSent     int `json:"likes_sent" db:"likes_sent"`
	LikesReceived int `json:"likes_received" db:"likes_received"`
	MutualMatches int `json:"mutual_matches" db:"mutual_matches"`
	PendingLikes  int `json:"pending_likes" db:"pending_likes"`
}
