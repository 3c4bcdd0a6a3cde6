package testtraffic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// deviceHeader carries the caller's device identity.
const deviceHeader = "X-Device-ID"

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request, optionally tagged with a device identity.
func (c *HTTPClient) Get(url, device string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if device != "" {
		req.Header.Set(deviceHeader, device)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body and a device identity.
func (c *HTTPClient) Post(url, device string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if device != "" {
		req.Header.Set(deviceHeader, device)
	}
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitActions submits feedback actions concurrently using worker pools
func submitActions(ctx context.Context, config *Config, actions []Action, stats *Stats) error {
	log.Printf("📤 Submitting %d actions with %d workers...", len(actions), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Counters for statistics
	var (
		successful int64
		failed     int64
		submitted  int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	actionChan := make(chan Action, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for action := range actionChan {
				select {
				case <-ctx.Done():
					return
				default:
					ok := submitSingleAction(ctx, client, config.BaseURL, action)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					if ok {
						atomic.AddInt64(&successful, 1)
					} else {
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (success: %d, failed: %d)",
								total, len(actions), succ, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (success: %d, failed: %d)",
								total, len(actions), succ, fail)
						}
					}
				}
			}
		}(i)
	}

	// Send actions to workers
	go func() {
		defer close(actionChan)
		for _, action := range actions {
			select {
			case <-ctx.Done():
				return
			case actionChan <- action:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.ActionsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ActionsSuccessful = int(atomic.LoadInt64(&successful))
	stats.ActionsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Action submission completed:
   Successful: %d
   Failed: %d
`, stats.ActionsSuccessful, stats.ActionsFailed)

	return nil
}

// submitSingleAction submits one feedback action and reports success.
func submitSingleAction(ctx context.Context, client *HTTPClient, baseURL string, action Action) bool {
	url := fmt.Sprintf("%s/feedback/%s/%s", baseURL, action.Kind, action.Entity)

	var body interface{}
	switch action.Kind {
	case "like":
		body = map[string]interface{}{"liked": action.Liked}
	case "vote":
		body = map[string]interface{}{"vote": action.Vote}
	case "rating":
		body = map[string]interface{}{"rating": action.Rating}
	default:
		return false
	}

	resp, err := client.Post(url, action.Device, body)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == StatusOK
}
