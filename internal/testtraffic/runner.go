package testtraffic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rampagelabs/armory/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete feedback traffic test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting armory traffic test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("devices", config.NumDevices),
		logger.Int("offers", config.NumOffers),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Seed the dataset unless the caller brought their own
	if !config.SkipSeed {
		if err := seedDataset(ctx, config); err != nil {
			return fmt.Errorf("dataset seeding failed: %w", err)
		}
	}

	// Step 3: Fetch the resolved offer entities to target
	entities, err := fetchOffers(ctx, config)
	if err != nil {
		return fmt.Errorf("offer retrieval failed: %w", err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("no available offers to target")
	}

	// Step 4: Snapshot aggregates before submitting anything
	reader := uuid.New().String()
	before, err := retrieveTallies(ctx, config, entities, reader, stats)
	if err != nil {
		return fmt.Errorf("baseline retrieval failed: %w", err)
	}

	// Step 5: Generate actions
	actions, err := generateActions(ctx, config, entities, stats)
	if err != nil {
		return fmt.Errorf("action generation failed: %w", err)
	}

	// Step 6: Submit actions concurrently
	if err := submitActions(ctx, config, actions, stats); err != nil {
		return fmt.Errorf("action submission failed: %w", err)
	}

	// Step 7: Let the store settle
	logger.Get().Info(ctx, "waiting for aggregates to settle")
	time.Sleep(SettleDelay)

	// Step 8: Snapshot aggregates again and verify the deltas
	after, err := retrieveTallies(ctx, config, entities, reader, stats)
	if err != nil {
		return fmt.Errorf("final retrieval failed: %w", err)
	}
	if err := verifyTallies(ctx, config, before, after, expectedTallies(actions), stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 9: Save actions to file
	if err := saveActionsToFile(ctx, config, actions); err != nil {
		logger.Get().Warn(ctx, "failed to save actions to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(url, "")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveActionsToFile saves the generated actions to a JSON file.
func saveActionsToFile(ctx context.Context, config *Config, actions []Action) error {
	if len(actions) == 0 {
		return fmt.Errorf("no actions to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_actions_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write actions to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, action := range actions {
		jsonData, err := marshalJSON(action)
		if err != nil {
			return fmt.Errorf("failed to marshal action %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write action %d: %w", i, err)
		}

		// Add comma except for last action
		if i < len(actions)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "actions saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, actionsPerSecond float64

	if stats.ActionsSubmitted > 0 {
		successRate = float64(stats.ActionsSuccessful) / float64(stats.ActionsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		actionsPerSecond = float64(stats.ActionsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("actionsGenerated", stats.ActionsGenerated),
		logger.Int("actionsSubmitted", stats.ActionsSubmitted),
		logger.Int("actionsSuccessful", stats.ActionsSuccessful),
		logger.Int("actionsFailed", stats.ActionsFailed),
		logger.Int("viewsRetrieved", stats.ViewsRetrieved),
		logger.Int("entitiesVerified", stats.EntitiesVerified),
		logger.Int("mismatches", stats.Mismatches),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("actionsPerSecond", actionsPerSecond))
}
