package feedback

import "math"

// LikeView is the merged (shared aggregate, local contribution) shape
// delivered to like subscribers.
type LikeView struct {
	Count   int64 `json:"count"`
	IsLiked bool  `json:"isLiked"`
}

// VoteView is the merged vote shape. UserVote is nil when the device holds
// no active vote.
type VoteView struct {
	Score    int64   `json:"score"`
	Up       int64   `json:"up"`
	Down     int64   `json:"down"`
	UserVote *string `json:"userVote"`
}

// RatingView is the merged rating shape. Average is rounded to one
// decimal; MyRating is nil when the device has not rated.
type RatingView struct {
	Average  float64 `json:"average"`
	Count    int64   `json:"count"`
	MyRating *int    `json:"myRating"`
}

// PresenceView is the live/total shape for the global stats entity.
type PresenceView struct {
	Online int64 `json:"online"`
	Total  int64 `json:"total"`
}

// MergeLike builds the subscriber view from the shared counter and the
// device's local boolean.
func MergeLike(agg Aggregate, liked bool) LikeView {
	return LikeView{Count: agg.Count, IsLiked: liked}
}

// MergeVote builds the subscriber view; score is up minus down.
func MergeVote(agg Aggregate, mine VoteState) VoteView {
	v := VoteView{Score: agg.Up - agg.Down, Up: agg.Up, Down: agg.Down}
	if mine != VoteNone {
		s := mine.String()
		v.UserVote = &s
	}
	return v
}

// MergeRating builds the subscriber view with the rounded average.
func MergeRating(agg Aggregate, mine *int) RatingView {
	return RatingView{Average: RoundAverage(agg.Sum, agg.Count), Count: agg.Count, MyRating: mine}
}

// RoundAverage computes sum/count rounded to one decimal, or 0 when there
// are no ratings.
func RoundAverage(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(count)*10) / 10
}
