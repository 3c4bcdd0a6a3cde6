package testtraffic

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/rampagelabs/armory/pkg/logger"
)

// Constants for the action mix. Weights are out of actionMixDivisor.
const (
	actionMixDivisor = 10
	likeWeight       = 4 // 40% likes
	voteWeight       = 3 // 30% votes, remainder ratings
)

// Constants for generated values.
const (
	voteDirectionDivisor = 2
	ratingMin            = 1
	ratingRange          = 5
)

// randomInt returns a random int in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

// generateActions creates one action per (device, entity) pair with unique
// device IDs. The resulting slice, grouped by entity, yields the exact
// aggregate deltas the verifier expects.
func generateActions(ctx context.Context, config *Config, entities []string, stats *Stats) ([]Action, error) {
	logger.Get().Info(ctx, "generating actions with unique device IDs",
		logger.Int("devices", config.NumDevices),
		logger.Int("entities", len(entities)))

	// Pre-allocate device IDs to ensure uniqueness
	deviceIDs := make([]string, config.NumDevices)
	for i := 0; i < config.NumDevices; i++ {
		deviceIDs[i] = uuid.New().String()
	}

	actions := make([]Action, 0, config.NumDevices*len(entities))
	for _, device := range deviceIDs {
		for _, entity := range entities {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			actions = append(actions, generateSingleAction(device, entity))
		}
	}

	stats.ActionsGenerated = len(actions)
	logger.Get().Info(ctx, "generated actions successfully", logger.Int("count", len(actions)))

	return actions, nil
}

// generateSingleAction picks a kind for the pair and fills in its payload.
func generateSingleAction(device, entity string) Action {
	action := Action{Device: device, Entity: entity}

	switch mix := randomInt(actionMixDivisor); {
	case mix < likeWeight:
		action.Kind = "like"
		liked := true
		action.Liked = &liked
	case mix < likeWeight+voteWeight:
		action.Kind = "vote"
		if randomInt(voteDirectionDivisor) == 0 {
			action.Vote = "up"
		} else {
			action.Vote = "down"
		}
	default:
		action.Kind = "rating"
		rating := int(ratingMin + randomInt(ratingRange))
		action.Rating = &rating
	}

	return action
}

// expectedTallies folds the generated actions into per-entity deltas.
func expectedTallies(actions []Action) map[string]Tally {
	expected := make(map[string]Tally)
	for _, action := range actions {
		t := expected[action.Entity]
		switch action.Kind {
		case "like":
			if action.Liked != nil && *action.Liked {
				t.Likes++
			}
		case "vote":
			switch action.Vote {
			case "up":
				t.Up++
			case "down":
				t.Down++
			}
		case "rating":
			if action.Rating != nil {
				t.RatingSum += int64(*action.Rating)
				t.RatingCount++
			}
		}
		expected[action.Entity] = t
	}
	return expected
}
