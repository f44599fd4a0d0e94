// Package testmatches drives a running rating service with generated
// matches and checks the leaderboard it builds.
package testmatches

import (
	"time"

	"github.com/okian/pmr/internal/domain/rules"
)

// Config holds configuration for the match load test.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumMatches int           // Number of matches to generate
	NumPlayers int           // Size of the player pool the matches draw from
	Duplicates int           // Every Nth match is submitted twice; 0 disables
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for the queue to drain
	Seed       uint64        // Seed of the match generator
	OutputFile string        // Output file for matches
	Verbose    bool          // Enable verbose logging
}

// Match is a POST /matches request body.
type Match struct {
	MatchID  string            `json:"match_id"`
	Team1    []string          `json:"team1"`
	Team2    []string          `json:"team2"`
	Sets     []*rules.SetInput `json:"sets"`
	PlayedAt string            `json:"played_at"`
}

// Players returns the four player ids in team order.
func (m *Match) Players() []string {
	return []string{m.Team1[0], m.Team1[1], m.Team2[0], m.Team2[1]}
}

// Entry is a leaderboard or player entry.
type Entry struct {
	Rank        int     `json:"rank"`
	PlayerID    string  `json:"player_id"`
	PMR         float64 `json:"pmr"`
	Reliability float64 `json:"reliability"`
	Matches     int     `json:"matches"`
}

// AckResponse is the response to a match submission.
type AckResponse struct {
	Status    string `json:"status"`
	MatchID   string `json:"match_id"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics.
type Stats struct {
	MatchesGenerated   int
	MatchesSubmitted   int
	MatchesAccepted    int
	MatchesDuplicate   int
	MatchesThrottled   int
	MatchesFailed      int
	PlayersRetrieved   int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
