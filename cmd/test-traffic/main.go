package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/rampagelabs/armory/internal/testtraffic"
)

// Default configuration constants.
const (
	defaultNumDevices  = 200
	defaultNumOffers   = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numDevices = flag.Int("devices", defaultNumDevices, "Number of synthetic devices")
		numOffers  = flag.Int("offers", defaultNumOffers, "Number of offers in the seeded dataset")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		skipSeed   = flag.Bool("skip-seed", false, "Do not POST a dataset; target whatever is already loaded")
		outputFile = flag.String("output", "", "Output file for generated actions (default: generated_actions_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for test output (default: traffic_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testtraffic.ShowHelp()
		return
	}

	// Setup logging
	if err := testtraffic.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testtraffic.Config{
		BaseURL:    *baseURL,
		NumDevices: *numDevices,
		NumOffers:  *numOffers,
		Workers:    *workers,
		Timeout:    *timeout,
		SkipSeed:   *skipSeed,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the test
	if err := testtraffic.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
