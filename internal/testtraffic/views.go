package testtraffic

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/rampagelabs/armory/internal/domain/feedback"
)

// entityTally is the per-entity result of one retrieval pass.
type entityTally struct {
	entity string
	tally  Tally
	err    error
}

// retrieveTallies fetches the like, vote and rating views for every entity
// concurrently and folds them into per-entity tallies. The reader device is
// a fresh identity so local contributions never skew the shared aggregates.
func retrieveTallies(ctx context.Context, config *Config, entities []string, reader string, stats *Stats) (map[string]Tally, error) {
	log.Printf("🔍 Retrieving views for %d entities with %d workers...", len(entities), config.Workers)

	client := newHTTPClient(config.Timeout)

	var (
		retrieved int64
		failed    int64
	)

	// Create worker pool
	entityChan := make(chan string, config.Workers*WorkerChannelMultiplier)
	resultChan := make(chan entityTally, len(entities))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for entity := range entityChan {
				select {
				case <-ctx.Done():
					return
				default:
					tally, err := retrieveSingleTally(ctx, client, config.BaseURL, entity, reader)
					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get views for %s: %v", entity, err)
						}
					} else {
						atomic.AddInt64(&retrieved, 1)
					}
					resultChan <- entityTally{entity: entity, tally: tally, err: err}
				}
			}
		}(i)
	}

	// Send entities to workers
	go func() {
		defer close(entityChan)
		for _, entity := range entities {
			select {
			case <-ctx.Done():
				return
			case entityChan <- entity:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results
	tallies := make(map[string]Tally, len(entities))
	for result := range resultChan {
		if result.err == nil {
			tallies[result.entity] = result.tally
		}
	}

	stats.ViewsRetrieved += int(atomic.LoadInt64(&retrieved))

	log.Printf(`✅ View retrieval completed:
   Retrieved: %d
   Failed: %d
`, int(atomic.LoadInt64(&retrieved)), int(atomic.LoadInt64(&failed)))

	return tallies, nil
}

// retrieveSingleTally fetches all three feedback kinds for one entity.
func retrieveSingleTally(ctx context.Context, client *HTTPClient, baseURL, entity, reader string) (Tally, error) {
	var tally Tally

	var likeView feedback.LikeView
	if err := getView(client, baseURL, "like", entity, reader, &likeView); err != nil {
		return Tally{}, err
	}
	tally.Likes = likeView.Count

	var voteView feedback.VoteView
	if err := getView(client, baseURL, "vote", entity, reader, &voteView); err != nil {
		return Tally{}, err
	}
	tally.Up = voteView.Up
	tally.Down = voteView.Down

	var ratingView feedback.RatingView
	if err := getView(client, baseURL, "rating", entity, reader, &ratingView); err != nil {
		return Tally{}, err
	}
	tally.RatingCount = ratingView.Count
	// Recover the shared sum from the rounded average; one decimal of
	// precision is enough for whole-star deltas.
	tally.RatingSum = int64(ratingView.Average*float64(ratingView.Count) + 0.5)

	return tally, nil
}

// getView fetches and decodes one feedback view.
func getView(client *HTTPClient, baseURL, kind, entity, reader string, out interface{}) error {
	url := fmt.Sprintf("%s/feedback/%s/%s", baseURL, kind, entity)

	resp, err := client.Get(url, reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	if err := unmarshalJSON(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
