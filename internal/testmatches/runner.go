package testmatches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/pmr/pkg/logger"
)

// ErrNotSettled is returned when the service queue does not drain in time.
var ErrNotSettled = errors.New("service did not finish rating in time")

// Run executes the complete match test.
func Run(ctx context.Context, cfg *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting pmr match test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("matches", cfg.NumMatches),
		logger.Int("players", cfg.NumPlayers),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN),
		logger.Bool("verbose", cfg.Verbose))

	client := newHTTPClient(cfg.Timeout)

	// Step 1: Check service health and note how much work it has already done
	before, err := checkServiceHealth(ctx, client, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate matches
	matches, err := generateMatches(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("match generation failed: %w", err)
	}

	// Step 3: Submit matches, then resubmit a sample of them
	submitMatches(ctx, cfg, matches, stats)
	if dups := duplicates(matches, cfg.Duplicates); len(dups) > 0 {
		submitMatches(ctx, cfg, dups, stats)
	}

	// Step 4: Wait for the service to rate everything it accepted
	if err := waitForProcessing(ctx, client, cfg, before.processed()+stats.MatchesAccepted); err != nil {
		return err
	}

	// Step 5: Fetch every player of the pool
	players := retrievePlayers(ctx, cfg, playerIDs(matches), stats)

	// Step 6: Get leaderboard
	leaderboard, err := getLeaderboard(ctx, cfg, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	// Step 7: Verify results
	var expected map[string]int
	if stats.MatchesFailed == 0 {
		expected = appearances(matches)
	} else {
		log.Warn(ctx, "some submissions failed; skipping match count checks", logger.Int("failed", stats.MatchesFailed))
	}
	if err := verifyResults(ctx, cfg, players, leaderboard, expected); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save matches to file
	if cfg.OutputFile != "" {
		if err := saveMatchesToFile(ctx, cfg.OutputFile, matches); err != nil {
			log.Warn(ctx, "failed to save matches to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running and returns its stats.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) (serviceStats, error) {
	logger.Get().Info(ctx, "checking service health")

	// The service answers /healthz with Prometheus metrics.
	if err := client.GetJSON(ctx, baseURL+"/healthz", nil); err != nil {
		return serviceStats{}, fmt.Errorf("failed to connect to service: %w", err)
	}
	s, err := getServiceStats(ctx, client, baseURL)
	if err != nil {
		return serviceStats{}, fmt.Errorf("failed to read service stats: %w", err)
	}

	logger.Get().Info(ctx, "service is healthy")
	return s, nil
}

// waitForProcessing polls /stats until the queue is empty and at least want
// matches have been handled.
func waitForProcessing(ctx context.Context, client *HTTPClient, cfg *Config, want int) error {
	logger.Get().Info(ctx, "waiting for matches to be rated", logger.Int("processed_target", want))

	ctx, cancel := context.WithTimeout(ctx, cfg.Settle)
	defer cancel()

	ticker := time.NewTicker(StatsPollInterval)
	defer ticker.Stop()
	for {
		s, err := getServiceStats(ctx, client, cfg.BaseURL)
		if err == nil && s.QueueLength == 0 && s.processed() >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNotSettled, ctx.Err())
		case <-ticker.C:
		}
	}
}

// playerIDs returns the distinct players of matches in first-seen order.
func playerIDs(matches []Match) []string {
	seen := make(map[string]struct{})
	var ids []string
	for i := range matches {
		for _, id := range matches[i].Players() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// saveMatchesToFile writes the generated matches as a JSON array.
func saveMatchesToFile(ctx context.Context, filename string, matches []Match) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal matches: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "matches saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, matchesPerSecond float64
	if stats.MatchesSubmitted > 0 {
		acceptRate = float64(stats.MatchesAccepted) / float64(stats.MatchesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		matchesPerSecond = float64(stats.MatchesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("matchesSubmitted", stats.MatchesSubmitted),
		logger.Int("matchesAccepted", stats.MatchesAccepted),
		logger.Int("matchesDuplicate", stats.MatchesDuplicate),
		logger.Int("matchesThrottled", stats.MatchesThrottled),
		logger.Int("matchesFailed", stats.MatchesFailed),
		logger.Int("playersRetrieved", stats.PlayersRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
