package testmatches

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pmr/pkg/logger"
)

// Submission results.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultThrottled = "throttled"
	resultFailed    = "failed"
)

// HTTPClient wraps http.Client with JSON helpers.
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// GetJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

// submitMatches posts matches concurrently using a worker pool.
func submitMatches(ctx context.Context, cfg *Config, matches []Match, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting matches", logger.Int("matches", len(matches)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/matches"

	var submitted, accepted, duplicate, throttled, failed atomic.Int64
	var lastReport atomic.Int64
	reportInterval := time.Second

	matchChan := make(chan Match, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range matchChan {
				if ctx.Err() != nil {
					return
				}
				result, retries := submitWithRetry(ctx, client, url, &m)
				throttled.Add(int64(retries))

				submitted.Add(1)
				switch result {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) && cfg.Verbose {
					log.Info(ctx, "submission progress",
						logger.Int("submitted", int(submitted.Load())),
						logger.Int("total", len(matches)),
						logger.Int("accepted", int(accepted.Load())),
						logger.Int("duplicate", int(duplicate.Load())),
						logger.Int("failed", int(failed.Load())))
				}
			}
		}()
	}

	go func() {
		defer close(matchChan)
		for _, m := range matches {
			select {
			case <-ctx.Done():
				return
			case matchChan <- m:
			}
		}
	}()

	wg.Wait()

	stats.MatchesSubmitted += int(submitted.Load())
	stats.MatchesAccepted += int(accepted.Load())
	stats.MatchesDuplicate += int(duplicate.Load())
	stats.MatchesThrottled += int(throttled.Load())
	stats.MatchesFailed += int(failed.Load())

	log.Info(ctx, "match submission completed",
		logger.Int("accepted", int(accepted.Load())),
		logger.Int("duplicate", int(duplicate.Load())),
		logger.Int("throttled", int(throttled.Load())),
		logger.Int("failed", int(failed.Load())))
}

// submitWithRetry posts m, backing off while the service reports a full queue.
// It returns the final result and how many times the match was throttled.
func submitWithRetry(ctx context.Context, client *HTTPClient, url string, m *Match) (string, int) {
	retries := 0
	for {
		result := submitSingleMatch(ctx, client, url, m)
		if result != resultThrottled {
			return result, retries
		}
		retries++
		if retries > MaxThrottleRetries {
			return resultFailed, retries
		}
		select {
		case <-ctx.Done():
			return resultFailed, retries
		case <-time.After(ThrottleBackoff * time.Duration(retries)):
		}
	}
}

// submitSingleMatch submits a single match and returns the result.
func submitSingleMatch(ctx context.Context, client *HTTPClient, url string, m *Match) string {
	resp, err := client.Post(ctx, url, m)
	if err != nil {
		return resultFailed
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return resultFailed
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && !ack.Duplicate {
			return resultAccepted
		}
		return resultDuplicate
	case http.StatusTooManyRequests:
		return resultThrottled
	default:
		return resultFailed
	}
}
