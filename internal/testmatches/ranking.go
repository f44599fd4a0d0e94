package testmatches

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/okian/pmr/pkg/logger"
)

// retrievePlayers fetches the entry of every id concurrently. Players the
// service does not know are left out.
func retrievePlayers(ctx context.Context, cfg *Config, ids []string, stats *Stats) []Entry {
	log := logger.Get()
	log.Info(ctx, "retrieving players", logger.Int("players", len(ids)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	entries := make([]Entry, len(ids))
	var failed atomic.Int64

	indexChan := make(chan int, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexChan {
				if ctx.Err() != nil {
					return
				}
				u := fmt.Sprintf("%s/players/%s?history=1", cfg.BaseURL, url.PathEscape(ids[i]))
				if err := client.GetJSON(ctx, u, &entries[i]); err != nil {
					failed.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "failed to get player", logger.String("player_id", ids[i]), logger.Error(err))
					}
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range ids {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.PlayerID != "" {
			valid = append(valid, e)
		}
	}
	stats.PlayersRetrieved = len(valid)

	log.Info(ctx, "player retrieval completed",
		logger.Int("retrieved", len(valid)), logger.Int("failed", int(failed.Load())))
	return valid
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, cfg *Config, stats *Stats) ([]Entry, error) {
	logger.Get().Info(ctx, "getting leaderboard", logger.Int("limit", cfg.TopN))

	client := newHTTPClient(cfg.Timeout)
	var leaderboard []Entry
	if err := client.GetJSON(ctx, fmt.Sprintf("%s/leaderboard?limit=%d", cfg.BaseURL, cfg.TopN), &leaderboard); err != nil {
		return nil, err
	}

	stats.LeaderboardEntries = len(leaderboard)
	logger.Get().Info(ctx, "retrieved leaderboard entries", logger.Int("count", len(leaderboard)))
	return leaderboard, nil
}

// serviceStats is the part of GET /stats the runner waits on.
type serviceStats struct {
	QueueLength     int `json:"queue_length"`
	MatchesRated    int `json:"matches_rated"`
	MatchesNoOp     int `json:"matches_noop"`
	MatchesRejected int `json:"matches_rejected"`
}

func (s serviceStats) processed() int {
	return s.MatchesRated + s.MatchesNoOp + s.MatchesRejected
}

func getServiceStats(ctx context.Context, client *HTTPClient, baseURL string) (serviceStats, error) {
	var s serviceStats
	err := client.GetJSON(ctx, baseURL+"/stats", &s)
	return s, err
}
