package resolve_test

import (
	"testing"
	"time"

	"github.com/rampagelabs/armory/internal/domain/model"
	"github.com/rampagelabs/armory/internal/domain/resolve"
	. "github.com/smartystreets/goconvey/convey"
)

// testNow is the fixed evaluation instant used across the pipeline tests.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func rfc(t time.Time) string { return t.Format(time.RFC3339) }

// baseDataset builds a dataset with one available weapon offer carrying a
// legendary item, which every filter lets through.
func baseDataset() *model.RawDataset {
	return &model.RawDataset{
		WeaponItem: []model.WeaponItem{
			{ID: "w1", Constant: "RIFLE", Power: 42, Speed: 1.1},
			{ID: "w2", Constant: "PISTOL", Power: 12, Speed: 2.5},
		},
		WeaponAesthetics: []model.WeaponAesthetic{
			{WeaponItemConstant: "RIFLE", Name: "Dragon", IconName: "dragon", MinLevel: 1, MaxLevel: 10},
			{WeaponItemConstant: "RIFLE", Name: "Gold Dragon", IconName: "gold", IsLegendary: true},
			{WeaponItemConstant: "PISTOL", Name: "Rust", IconName: "rust", MinLevel: 1, MaxLevel: 5},
		},
		Modifiers: []model.Modifier{
			{Constant: "FIRE", Name: "Fire", Type: "ELEMENT"},
		},
		LegendaryModifiers: []model.Modifier{
			{Constant: "VOID", Name: "Void", Type: "ELEMENT"},
		},
		OfferDetails: []model.OfferDetail{
			{OfferID: "o1", WeaponID: "w1", Modifier1: "FIRE", Modifier2: "VOID", Rarity: "LEGENDARY", Level: 7},
		},
		Offers: []model.Offer{
			{
				ID: "o1", Name: "Dragon Pack", Tab: "WEAPON",
				StartDate: rfc(testNow.Add(-time.Hour)), EndDate: rfc(testNow.Add(time.Hour)),
				Price: 990, CurrencyType: "GEM",
			},
		},
	}
}

func TestResolve_AvailableOffer(t *testing.T) {
	Convey("Given a dataset with one live legendary weapon offer", t, func() {
		ds := baseDataset()

		Convey("When resolving", func() {
			offers := resolve.Resolve(ds, testNow)

			Convey("Then the offer survives with its item joined", func() {
				So(offers, ShouldHaveLength, 1)
				So(offers[0].ID, ShouldEqual, "o1")
				So(offers[0].IsAvailable, ShouldBeTrue)
				So(offers[0].IsUpcoming, ShouldBeFalse)
				So(offers[0].Items, ShouldHaveLength, 1)
			})

			Convey("And the item carries the offer price and currency", func() {
				item := offers[0].Items[0]
				So(item.Price, ShouldEqual, 990)
				So(item.Currency, ShouldEqual, "GEM")
			})

			Convey("And both modifier tables are joined with their origin", func() {
				mods := offers[0].Items[0].Modifiers
				So(mods, ShouldHaveLength, 2)
				So(mods[0].Name, ShouldEqual, "Fire")
				So(mods[0].IsLegendary, ShouldBeFalse)
				So(mods[1].Name, ShouldEqual, "Void")
				So(mods[1].IsLegendary, ShouldBeTrue)
			})

			Convey("And the legendary detail picks the legendary aesthetic", func() {
				a := offers[0].Items[0].Aesthetic
				So(a, ShouldNotBeNil)
				So(a.Name, ShouldEqual, "Gold Dragon")
				So(a.IsLegendary, ShouldBeTrue)
			})
		})
	})
}

func TestResolve_Filters(t *testing.T) {
	Convey("Given variations of the base dataset", t, func() {
		Convey("When the offer sits on a non-weapon tab", func() {
			ds := baseDataset()
			ds.Offers[0].Tab = "ARMOR"
			So(resolve.Resolve(ds, testNow), ShouldBeEmpty)
		})

		Convey("When the offer window already closed", func() {
			ds := baseDataset()
			ds.Offers[0].StartDate = rfc(testNow.Add(-2 * time.Hour))
			ds.Offers[0].EndDate = rfc(testNow.Add(-time.Hour))
			So(resolve.Resolve(ds, testNow), ShouldBeEmpty)
		})

		Convey("When the offer has not started yet", func() {
			ds := baseDataset()
			ds.Offers[0].StartDate = rfc(testNow.Add(time.Hour))
			ds.Offers[0].EndDate = rfc(testNow.Add(2 * time.Hour))
			offers := resolve.Resolve(ds, testNow)
			So(offers, ShouldHaveLength, 1)
			So(offers[0].IsUpcoming, ShouldBeTrue)
			So(offers[0].IsAvailable, ShouldBeFalse)
		})

		Convey("When a date string is malformed the offer is dropped", func() {
			ds := baseDataset()
			ds.Offers[0].StartDate = "yesterday"
			So(resolve.Resolve(ds, testNow), ShouldBeEmpty)
		})

		Convey("When the detail points at an unknown weapon", func() {
			ds := baseDataset()
			ds.OfferDetails[0].WeaponID = "ghost"
			So(resolve.Resolve(ds, testNow), ShouldBeEmpty)
		})

		Convey("When no item in the offer is legendary", func() {
			ds := baseDataset()
			ds.OfferDetails[0].Rarity = "RARE"
			ds.WeaponAesthetics[1].IsLegendary = false
			So(resolve.Resolve(ds, testNow), ShouldBeEmpty)
		})

		Convey("When the legendary aesthetic flag alone marks the item", func() {
			ds := baseDataset()
			ds.OfferDetails[0].Rarity = "RARE"
			ds.OfferDetails[0].Level = 99 // outside every non-legendary range
			// Fallback lands on the first aesthetic, which we flag legendary.
			ds.WeaponAesthetics[0].IsLegendary = true
			offers := resolve.Resolve(ds, testNow)
			So(offers, ShouldHaveLength, 1)
		})
	})
}

func TestResolve_AestheticSelection(t *testing.T) {
	Convey("Given a non-legendary detail", t, func() {
		ds := baseDataset()
		ds.OfferDetails[0].Rarity = "RARE"

		Convey("When the level falls inside a range", func() {
			ds.OfferDetails[0].Level = 7
			// Keep the offer legendary via a second, legendary item.
			ds.OfferDetails = append(ds.OfferDetails, model.OfferDetail{
				OfferID: "o1", WeaponID: "w2", Rarity: "LEGENDARY", Level: 1,
			})
			offers := resolve.Resolve(ds, testNow)
			So(offers, ShouldHaveLength, 1)

			Convey("Then the ranged non-legendary aesthetic wins", func() {
				a := offers[0].Items[0].Aesthetic
				So(a, ShouldNotBeNil)
				So(a.Name, ShouldEqual, "Dragon")
			})
		})

		Convey("When nothing matches it falls back to source order", func() {
			ds.OfferDetails[0].Level = 50
			ds.OfferDetails = append(ds.OfferDetails, model.OfferDetail{
				OfferID: "o1", WeaponID: "w2", Rarity: "LEGENDARY", Level: 1,
			})
			offers := resolve.Resolve(ds, testNow)
			So(offers, ShouldHaveLength, 1)
			a := offers[0].Items[0].Aesthetic
			So(a, ShouldNotBeNil)
			So(a.Name, ShouldEqual, "Dragon")
		})
	})

	Convey("Given a weapon with no aesthetics at all", t, func() {
		ds := baseDataset()
		ds.WeaponAesthetics = nil

		Convey("Then the item resolves with a nil aesthetic", func() {
			offers := resolve.Resolve(ds, testNow)
			So(offers, ShouldHaveLength, 1)
			So(offers[0].Items[0].Aesthetic, ShouldBeNil)
		})
	})
}

func TestResolve_Ordering(t *testing.T) {
	Convey("Given offers with different start times", t, func() {
		ds := baseDataset()
		ds.OfferDetails = append(ds.OfferDetails,
			model.OfferDetail{OfferID: "o2", WeaponID: "w1", Rarity: "LEGENDARY", Level: 1},
			model.OfferDetail{OfferID: "o3", WeaponID: "w1", Rarity: "LEGENDARY", Level: 1},
		)
		ds.Offers = append(ds.Offers,
			model.Offer{
				ID: "o2", Name: "Later", Tab: "WEAPON",
				StartDate: rfc(testNow.Add(2 * time.Hour)), EndDate: rfc(testNow.Add(4 * time.Hour)),
			},
			model.Offer{
				ID: "o3", Name: "Sooner", Tab: "WEAPON",
				StartDate: rfc(testNow.Add(time.Hour)), EndDate: rfc(testNow.Add(3 * time.Hour)),
			},
		)

		Convey("Then output is ordered by start, nearest first", func() {
			offers := resolve.Resolve(ds, testNow)
			So(offers, ShouldHaveLength, 3)
			So(offers[0].ID, ShouldEqual, "o1")
			So(offers[1].ID, ShouldEqual, "o3")
			So(offers[2].ID, ShouldEqual, "o2")
		})
	})
}

func TestSplitUpcoming(t *testing.T) {
	Convey("Given a resolved mix of live and upcoming offers", t, func() {
		nextStart := testNow.Add(time.Hour)
		offers := []model.ResolvedOffer{
			{ID: "live", IsAvailable: true, StartDate: testNow.Add(-time.Hour)},
			{ID: "near-a", IsUpcoming: true, StartDate: nextStart},
			{ID: "near-b", IsUpcoming: true, StartDate: nextStart},
			{ID: "far", IsUpcoming: true, StartDate: testNow.Add(26 * time.Hour)},
		}

		Convey("When splitting", func() {
			batch := resolve.SplitUpcoming(offers)

			Convey("Then offers at the next start are near-term", func() {
				So(batch.NextStart.Equal(nextStart), ShouldBeTrue)
				So(batch.NearTerm, ShouldHaveLength, 2)
				So(batch.FarTerm, ShouldHaveLength, 1)
				So(batch.FarTerm[0].ID, ShouldEqual, "far")
			})
		})
	})

	Convey("Given no upcoming offers", t, func() {
		offers := []model.ResolvedOffer{
			{ID: "live", IsAvailable: true, StartDate: testNow},
		}

		Convey("Then the batch is empty with a zero next start", func() {
			batch := resolve.SplitUpcoming(offers)
			So(batch.NextStart.IsZero(), ShouldBeTrue)
			So(batch.NearTerm, ShouldBeEmpty)
			So(batch.FarTerm, ShouldBeEmpty)
		})
	})
}

func TestParseDataset(t *testing.T) {
	Convey("Given raw dataset documents", t, func() {
		Convey("When every required collection is present", func() {
			doc := []byte(`{"WeaponItem":[],"WeaponAesthetics":[],"OfferDetails":[],"Offers":[]}`)
			ds, err := resolve.ParseDataset(doc)
			So(err, ShouldBeNil)
			So(ds, ShouldNotBeNil)
		})

		Convey("When modifier tables are absent it still parses", func() {
			doc := []byte(`{"WeaponItem":[],"WeaponAesthetics":[],"OfferDetails":[],"Offers":[]}`)
			ds, err := resolve.ParseDataset(doc)
			So(err, ShouldBeNil)
			So(ds.Modifiers, ShouldBeEmpty)
		})

		Convey("When a required collection is missing", func() {
			doc := []byte(`{"WeaponItem":[],"WeaponAesthetics":[],"Offers":[]}`)
			_, err := resolve.ParseDataset(doc)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "OfferDetails")
		})

		Convey("When the document is not JSON", func() {
			_, err := resolve.ParseDataset([]byte("not json"))
			So(err, ShouldNotBeNil)
		})
	})
}
