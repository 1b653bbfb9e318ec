package notifier

import (
	"fmt"
	"time"

	"github.com/gdugdh24/matchcore/internal/domain"
)

// Notifier decides which envelopes a relationship transition produces. It runs
// inside the pair transaction, so it only inspects the transition and never does I/O.
type Notifier struct{}

func New() *Notifier {
	return &Notifier{}
}

// OnTransition returns a NewLike for the liked user when a fresh Pending cycle started,
// and one MutualMatch for each member when this transition made the pair mutual.
// Idempotent re-likes produce no Changed transition and therefore nothing.
func (n *Notifier) OnTransition(t domain.Transition, liker, liked *domain.UserSummary, now time.Time) []domain.Envelope {
	if !t.Changed {
		return nil
	}

	switch {
	case t.BecameMutual:
		return []domain.Envelope{
			domain.NewEnvelope(liker.ID, mutualMatch(liked, scoreOf(t.Edge)), now),
			domain.NewEnvelope(liked.ID, mutualMatch(liker, scoreOf(t.Reverse)), now),
		}
	case t.FreshPending:
		return []domain.Envelope{
			domain.NewEnvelope(liked.ID, domain.NewLike{
				LikerID:    liker.ID,
				LikerName:  liker.DisplayName(),
				LikerPhoto: liker.PhotoURL,
				Message:    fmt.Sprintf("%s liked your profile!", liker.ShortName()),
			}, now),
		}
	}
	return nil
}

func mutualMatch(counterpart *domain.UserSummary, score *float64) domain.MutualMatch {
	return domain.MutualMatch{
		MatchedUserID:      counterpart.ID,
		MatchedUserName:    counterpart.DisplayName(),
		MatchedUserPhoto:   counterpart.PhotoURL,
		CompatibilityScore: score,
		Message:            fmt.Sprintf("You matched with %s!", counterpart.ShortName()),
	}
}

func scoreOf(e *domain.LikeEdge) *float64 {
	if e == nil || e.CompatibilityScore == nil {
		return nil
	}
	s := *e.CompatibilityScore
	return &s
}
