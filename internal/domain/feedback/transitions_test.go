package feedback_test

import (
	"testing"

	"github.com/rampagelabs/armory/internal/domain/feedback"
	. "github.com/smartystreets/goconvey/convey"
)

func intPtr(v int) *int { return &v }

func TestNextLike(t *testing.T) {
	Convey("Given like transitions", t, func() {
		Convey("A fresh like counts once", func() {
			next, delta := feedback.NextLike(false, true)
			So(next, ShouldBeTrue)
			So(delta, ShouldEqual, 1)
		})

		Convey("Resubmitting the held state is a no-op", func() {
			_, delta := feedback.NextLike(true, true)
			So(delta, ShouldEqual, 0)
			_, delta = feedback.NextLike(false, false)
			So(delta, ShouldEqual, 0)
		})

		Convey("Unliking returns the weight", func() {
			next, delta := feedback.NextLike(true, false)
			So(next, ShouldBeFalse)
			So(delta, ShouldEqual, -1)
		})
	})
}

func TestApplyLike(t *testing.T) {
	Convey("Given a shared like counter", t, func() {
		Convey("Deltas move the count", func() {
			agg := feedback.ApplyLike(feedback.Aggregate{Count: 10}, 1)
			So(agg.Count, ShouldEqual, 11)
			agg = feedback.ApplyLike(agg, -1)
			So(agg.Count, ShouldEqual, 10)
		})

		Convey("The counter never goes negative", func() {
			agg := feedback.ApplyLike(feedback.Aggregate{}, -1)
			So(agg.Count, ShouldEqual, 0)
		})
	})
}

func TestNextVote(t *testing.T) {
	Convey("Given vote transitions", t, func() {
		Convey("Repeating the held direction toggles it off", func() {
			So(feedback.NextVote(feedback.VoteUp, feedback.VoteUp), ShouldEqual, feedback.VoteNone)
			So(feedback.NextVote(feedback.VoteDown, feedback.VoteDown), ShouldEqual, feedback.VoteNone)
		})

		Convey("A different direction replaces the vote", func() {
			So(feedback.NextVote(feedback.VoteUp, feedback.VoteDown), ShouldEqual, feedback.VoteDown)
			So(feedback.NextVote(feedback.VoteNone, feedback.VoteUp), ShouldEqual, feedback.VoteUp)
		})
	})
}

func TestApplyVote(t *testing.T) {
	Convey("Given a shared vote tally", t, func() {
		agg := feedback.Aggregate{Up: 5, Down: 3}

		Convey("Switching direction moves one weight across", func() {
			next := feedback.ApplyVote(agg, feedback.VoteUp, feedback.VoteDown)
			So(next.Up, ShouldEqual, 4)
			So(next.Down, ShouldEqual, 4)
		})

		Convey("Toggling off removes the weight entirely", func() {
			next := feedback.ApplyVote(agg, feedback.VoteDown, feedback.VoteNone)
			So(next.Up, ShouldEqual, 5)
			So(next.Down, ShouldEqual, 2)
		})

		Convey("A round trip lands back where it started", func() {
			next := feedback.ApplyVote(agg, feedback.VoteNone, feedback.VoteUp)
			next = feedback.ApplyVote(next, feedback.VoteUp, feedback.VoteNone)
			So(next, ShouldResemble, agg)
		})

		Convey("Tallies never go negative", func() {
			next := feedback.ApplyVote(feedback.Aggregate{}, feedback.VoteUp, feedback.VoteNone)
			So(next.Up, ShouldEqual, 0)
		})
	})
}

func TestApplyRating(t *testing.T) {
	Convey("Given a shared rating aggregate of 12 over 3 ratings", t, func() {
		agg := feedback.Aggregate{Sum: 12, Count: 3}

		Convey("A first-time rating grows both sum and count", func() {
			next := feedback.ApplyRating(agg, nil, intPtr(5))
			So(next.Sum, ShouldEqual, 17)
			So(next.Count, ShouldEqual, 4)
		})

		Convey("Replacing a 3 with a 5 adjusts sum only", func() {
			next := feedback.ApplyRating(agg, intPtr(3), intPtr(5))
			So(next.Sum, ShouldEqual, 14)
			So(next.Count, ShouldEqual, 3)
			So(feedback.RoundAverage(next.Sum, next.Count), ShouldEqual, 4.7)
		})

		Convey("A retraction removes the sum but keeps the count", func() {
			next := feedback.ApplyRating(agg, intPtr(4), nil)
			So(next.Sum, ShouldEqual, 8)
			So(next.Count, ShouldEqual, 3)
		})
	})
}

func TestRoundAverage(t *testing.T) {
	Convey("Given rating sums and counts", t, func() {
		So(feedback.RoundAverage(0, 0), ShouldEqual, 0)
		So(feedback.RoundAverage(12, 3), ShouldEqual, 4)
		So(feedback.RoundAverage(10, 3), ShouldEqual, 3.3)
		So(feedback.RoundAverage(11, 3), ShouldEqual, 3.7)
	})
}

func TestParseKind(t *testing.T) {
	Convey("Given wire kind strings", t, func() {
		for _, s := range []string{"like", "vote", "rating", "presence"} {
			kind, err := feedback.ParseKind(s)
			So(err, ShouldBeNil)
			So(string(kind), ShouldEqual, s)
		}

		_, err := feedback.ParseKind("applause")
		So(err, ShouldNotBeNil)
	})
}

func TestMergeViews(t *testing.T) {
	Convey("Given shared aggregates and local contributions", t, func() {
		Convey("Like views pair the count with the device flag", func() {
			view := feedback.MergeLike(feedback.Aggregate{Count: 7}, true)
			So(view.Count, ShouldEqual, 7)
			So(view.IsLiked, ShouldBeTrue)
		})

		Convey("Vote views compute score and expose the device vote", func() {
			view := feedback.MergeVote(feedback.Aggregate{Up: 9, Down: 4}, feedback.VoteDown)
			So(view.Score, ShouldEqual, 5)
			So(view.UserVote, ShouldNotBeNil)
			So(*view.UserVote, ShouldEqual, "down")

			view = feedback.MergeVote(feedback.Aggregate{}, feedback.VoteNone)
			So(view.UserVote, ShouldBeNil)
		})

		Convey("Rating views round the average to one decimal", func() {
			view := feedback.MergeRating(feedback.Aggregate{Sum: 14, Count: 3}, intPtr(5))
			So(view.Average, ShouldEqual, 4.7)
			So(view.Count, ShouldEqual, 3)
			So(*view.MyRating, ShouldEqual, 5)
		})
	})
}
