package resolve

import (
	"time"

	"github.com/rampagelabs/armory/internal/domain/model"
)

// Batch splits the upcoming offers around the next batch instant: the
// minimum upcoming start time. Offers starting exactly then are near-term,
// all later-starting offers are far-term.
type Batch struct {
	NextStart time.Time             `json:"nextStart"`
	NearTerm  []model.ResolvedOffer `json:"nearTerm"`
	FarTerm   []model.ResolvedOffer `json:"farTerm"`
}

// SplitUpcoming computes the near-term/far-term batching over the
// pipeline's ordered output. With no upcoming offers both sets are empty
// and NextStart is the zero time.
func SplitUpcoming(offers []model.ResolvedOffer) Batch {
	var b Batch
	for _, o := range offers {
		if !o.IsUpcoming {
			continue
		}
		if b.NextStart.IsZero() || o.StartDate.Before(b.NextStart) {
			b.NextStart = o.StartDate
		}
	}
	if b.NextStart.IsZero() {
		return b
	}
	for _, o := range offers {
		if !o.IsUpcoming {
			continue
		}
		if o.StartDate.Equal(b.NextStart) {
			b.NearTerm = append(b.NearTerm, o)
		} else {
			b.FarTerm = append(b.FarTerm, o)
		}
	}
	return b
}
