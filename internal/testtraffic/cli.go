package testtraffic

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/rampagelabs/armory/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "traffic_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the traffic test tool.
func ShowHelp() {
	os.Stdout.WriteString(`Armory Traffic Test Tool
========================

A concurrent tool for exercising the armory feedback endpoints and
checking that shared aggregates match the traffic that was sent.

Usage:
  go run cmd/test-traffic/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -devices int
        Number of synthetic devices (default 200)
  -offers int
        Number of offers in the seeded dataset (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -skip-seed
        Do not POST a dataset; target whatever is already loaded
  -output string
        Output file for generated actions (default: generated_actions_TIMESTAMP.json)
  -log string
        Log file for test output (default: traffic_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-traffic/main.go

  # Test with custom parameters
  go run cmd/test-traffic/main.go -devices 1000 -workers 16 -url http://localhost:8080

  # Reuse a dataset loaded by the operator
  go run cmd/test-traffic/main.go -skip-seed -devices 500

  # Test with custom log file
  go run cmd/test-traffic/main.go -devices 1000 -log my_test.log
`)
}
