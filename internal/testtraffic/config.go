package testtraffic

import "time"

// Config holds configuration for the traffic test
type Config struct {
	BaseURL    string        // Base URL of the service
	NumDevices int           // Number of synthetic devices
	NumOffers  int           // Number of offers in the seeded dataset
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for actions
	LogFile    string        // Log file for test output
	Verbose    bool          // Enable verbose logging
	SkipSeed   bool          // Reuse an already loaded dataset
}

// Action is one feedback submission by one device against one entity.
// At most one action exists per (device, entity) pair, which keeps the
// expected aggregate deltas exact.
type Action struct {
	Device string `json:"device"`
	Entity string `json:"entity"`
	Kind   string `json:"kind"`
	Liked  *bool  `json:"liked,omitempty"`
	Vote   string `json:"vote,omitempty"`
	Rating *int   `json:"rating,omitempty"`
}

// Tally is the per-entity aggregate slice the verifier works with.
type Tally struct {
	Likes       int64
	Up          int64
	Down        int64
	RatingSum   int64
	RatingCount int64
}

// AckResponse represents the response from dataset submission
type AckResponse struct {
	Status string `json:"status"`
}

// Stats holds test statistics
type Stats struct {
	ActionsGenerated  int
	ActionsSubmitted  int
	ActionsSuccessful int
	ActionsFailed     int
	ViewsRetrieved    int
	EntitiesVerified  int
	Mismatches        int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
