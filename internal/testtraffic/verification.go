package testtraffic

import (
	"context"
	"fmt"
	"log"
	"sort"
)

// ratingSumSlack bounds the error of recovering a sum from a one-decimal
// average: round(sum/count, 1)*count drifts by at most count/20.
const ratingSumSlack = 20

// verifyTallies compares the observed aggregate deltas against the deltas
// implied by the submitted actions.
func verifyTallies(ctx context.Context, config *Config, before, after, expected map[string]Tally, stats *Stats) error {
	log.Println("🔍 Verifying aggregate deltas...")

	if len(after) == 0 {
		return fmt.Errorf("no views to verify")
	}

	entities := make([]string, 0, len(expected))
	for entity := range expected {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	mismatches := 0
	for _, entity := range entities {
		want := expected[entity]
		base, okBase := before[entity]
		final, okFinal := after[entity]
		if !okBase || !okFinal {
			mismatches++
			log.Printf("⚠️  %s: missing baseline or final view", entity)
			continue
		}

		got := Tally{
			Likes:       final.Likes - base.Likes,
			Up:          final.Up - base.Up,
			Down:        final.Down - base.Down,
			RatingSum:   final.RatingSum - base.RatingSum,
			RatingCount: final.RatingCount - base.RatingCount,
		}

		if problem := compareTallies(want, got, final.RatingCount); problem != "" {
			mismatches++
			log.Printf("⚠️  %s: %s", entity, problem)
			continue
		}

		if config.Verbose {
			log.Printf("   %s: likes +%d, votes +%d/-%d, ratings +%d ok",
				entity, got.Likes, got.Up, got.Down, got.RatingCount)
		}
	}

	stats.EntitiesVerified = len(entities)
	stats.Mismatches = mismatches

	if mismatches > 0 {
		log.Printf("⚠️  Verification found %d mismatched entities out of %d", mismatches, len(entities))
	} else {
		log.Printf("✅ All %d entities verified", len(entities))
	}
	return nil
}

// compareTallies reports the first delta that disagrees, or "" when all
// match. The rating sum is checked with slack because it is recovered from
// a rounded average.
func compareTallies(want, got Tally, finalCount int64) string {
	if got.Likes != want.Likes {
		return fmt.Sprintf("like delta %d, want %d", got.Likes, want.Likes)
	}
	if got.Up != want.Up {
		return fmt.Sprintf("upvote delta %d, want %d", got.Up, want.Up)
	}
	if got.Down != want.Down {
		return fmt.Sprintf("downvote delta %d, want %d", got.Down, want.Down)
	}
	if got.RatingCount != want.RatingCount {
		return fmt.Sprintf("rating count delta %d, want %d", got.RatingCount, want.RatingCount)
	}
	slack := finalCount/ratingSumSlack + 1
	if diff := got.RatingSum - want.RatingSum; diff > slack || diff < -slack {
		return fmt.Sprintf("rating sum delta %d, want %d (slack %d)", got.RatingSum, want.RatingSum, slack)
	}
	return ""
}
