package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rampagelabs/armory/internal/adapters/repository"
	"github.com/rampagelabs/armory/internal/domain/feedback"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore_SeededBaselines(t *testing.T) {
	Convey("Given a fallback store with seeding enabled", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		defer s.Close()

		Convey("Like counters seed into the expected band", func() {
			agg, err := s.Get(ctx, repository.AggregateKey(feedback.KindLike, "offer-1"))
			So(err, ShouldBeNil)
			So(agg.Count, ShouldBeGreaterThanOrEqualTo, 5)
			So(agg.Count, ShouldBeLessThan, 150)
		})

		Convey("The same key always seeds the same value", func() {
			key := repository.AggregateKey(feedback.KindLike, "offer-1")
			first, err := s.Get(ctx, key)
			So(err, ShouldBeNil)

			other := repository.NewMemoryStore(ctx)
			defer other.Close()
			second, err := other.Get(ctx, key)
			So(err, ShouldBeNil)
			So(second, ShouldResemble, first)
		})

		Convey("Rating seeds produce an average between 3.0 and 4.9", func() {
			agg, err := s.Get(ctx, repository.AggregateKey(feedback.KindRating, "offer-1"))
			So(err, ShouldBeNil)
			So(agg.Count, ShouldBeGreaterThan, 0)
			avg := feedback.RoundAverage(agg.Sum, agg.Count)
			So(avg, ShouldBeGreaterThanOrEqualTo, 2.9)
			So(avg, ShouldBeLessThanOrEqualTo, 5)
		})

		Convey("The total visit counter starts at its baseline", func() {
			agg, err := s.Get(ctx, repository.TotalVisitsKey)
			So(err, ShouldBeNil)
			So(agg.Count, ShouldEqual, 1000)
		})

		Convey("Vote tallies start empty", func() {
			agg, err := s.Get(ctx, repository.AggregateKey(feedback.KindVote, "offer-1"))
			So(err, ShouldBeNil)
			So(agg, ShouldResemble, feedback.Aggregate{})
		})
	})

	Convey("Given a store with seeding disabled", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx, repository.WithSeededBaselines(false))
		defer s.Close()

		Convey("Every counter starts from zero", func() {
			agg, err := s.Get(ctx, repository.AggregateKey(feedback.KindLike, "offer-1"))
			So(err, ShouldBeNil)
			So(agg, ShouldResemble, feedback.Aggregate{})
		})
	})
}

func TestMemoryStore_Update(t *testing.T) {
	Convey("Given a fallback store without seeding", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx, repository.WithSeededBaselines(false))
		defer s.Close()
		key := repository.AggregateKey(feedback.KindLike, "offer-9")

		Convey("When many writers increment concurrently", func() {
			const writers = 100
			var wg sync.WaitGroup
			wg.Add(writers)
			for i := 0; i < writers; i++ {
				go func() {
					defer wg.Done()
					_, _ = s.Update(ctx, key, func(cur feedback.Aggregate) feedback.Aggregate {
						return feedback.ApplyLike(cur, 1)
					})
				}()
			}
			wg.Wait()

			Convey("Then no increment is lost", func() {
				agg, err := s.Get(ctx, key)
				So(err, ShouldBeNil)
				So(agg.Count, ShouldEqual, writers)
			})
		})
	})
}

func TestMemoryStore_Subscribe(t *testing.T) {
	Convey("Given a subscription on a like counter", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx, repository.WithSeededBaselines(false))
		defer s.Close()
		key := repository.AggregateKey(feedback.KindLike, "offer-2")

		ch, cancel, err := s.Subscribe(ctx, key)
		So(err, ShouldBeNil)
		defer cancel()

		Convey("Then the current value is replayed immediately", func() {
			select {
			case agg := <-ch:
				So(agg.Count, ShouldEqual, 0)
			case <-time.After(time.Second):
				So("no replay", ShouldBeEmpty)
			}
		})

		Convey("And updates arrive as they commit", func() {
			<-ch // drain the replay
			_, err := s.Update(ctx, key, func(cur feedback.Aggregate) feedback.Aggregate {
				return feedback.ApplyLike(cur, 1)
			})
			So(err, ShouldBeNil)

			select {
			case agg := <-ch:
				So(agg.Count, ShouldEqual, 1)
			case <-time.After(time.Second):
				So("no delivery", ShouldBeEmpty)
			}
		})
	})
}

func TestMemoryStore_Presence(t *testing.T) {
	Convey("Given short presence leases", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx,
			repository.WithMemoryPresenceTTL(80*time.Millisecond),
			repository.WithMemorySweepInterval(20*time.Millisecond),
		)
		defer s.Close()

		Convey("When two sessions mark presence", func() {
			So(s.TrackPresence(ctx, "global", "sess-a"), ShouldBeNil)
			So(s.TrackPresence(ctx, "global", "sess-b"), ShouldBeNil)

			online, err := s.OnlineCount(ctx, "global")
			So(err, ShouldBeNil)
			So(online, ShouldEqual, 2)

			Convey("And one ends gracefully, the count drops by one", func() {
				So(s.EndPresence(ctx, "global", "sess-a"), ShouldBeNil)
				online, err := s.OnlineCount(ctx, "global")
				So(err, ShouldBeNil)
				So(online, ShouldEqual, 1)
			})

			Convey("And without renewal the leases expire", func() {
				time.Sleep(200 * time.Millisecond)
				online, err := s.OnlineCount(ctx, "global")
				So(err, ShouldBeNil)
				So(online, ShouldEqual, 0)
			})

			Convey("And a heartbeat keeps a session alive", func() {
				for i := 0; i < 4; i++ {
					time.Sleep(40 * time.Millisecond)
					So(s.TrackPresence(ctx, "global", "sess-a"), ShouldBeNil)
				}
				online, err := s.OnlineCount(ctx, "global")
				So(err, ShouldBeNil)
				So(online, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}

func TestMemoryStore_Close(t *testing.T) {
	Convey("Given a closed store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(ctx)
		So(s.Close(), ShouldBeNil)

		Convey("Then reads and writes are refused", func() {
			_, err := s.Get(ctx, repository.TotalVisitsKey)
			So(err, ShouldEqual, repository.ErrClosed)
			_, err = s.Update(ctx, repository.TotalVisitsKey, func(cur feedback.Aggregate) feedback.Aggregate {
				return cur
			})
			So(err, ShouldEqual, repository.ErrClosed)
		})

		Convey("And closing again is a no-op", func() {
			So(s.Close(), ShouldBeNil)
		})
	})
}
