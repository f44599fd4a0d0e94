package testmatches

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pmr/internal/domain/rules"
	"github.com/okian/pmr/pkg/logger"
)

// Set score shapes.
const (
	straightSetsPercent = 60
	maxLoserGames       = 4
	playersPerMatch     = 4
)

// generator builds random valid doubles matches over a fixed player pool.
type generator struct {
	rng     *rand.Rand
	players []string
	runID   string
}

func newGenerator(cfg *Config) *generator {
	runID := uuid.NewString()[:8]
	players := make([]string, cfg.NumPlayers)
	for i := range players {
		players[i] = runID + "-p" + strconv.Itoa(i)
	}
	return &generator{
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)), //nolint:gosec // load test data
		players: players,
		runID:   runID,
	}
}

// generateMatches creates cfg.NumMatches matches among cfg.NumPlayers players.
func generateMatches(ctx context.Context, cfg *Config, stats *Stats) ([]Match, error) {
	if cfg.NumPlayers < playersPerMatch {
		return nil, fmt.Errorf("need at least %d players, got %d", playersPerMatch, cfg.NumPlayers)
	}
	logger.Get().Info(ctx, "generating matches",
		logger.Int("matches", cfg.NumMatches), logger.Int("players", cfg.NumPlayers))

	g := newGenerator(cfg)
	matches := make([]Match, cfg.NumMatches)
	for i := range matches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during match generation: %w", err)
		}
		matches[i] = g.match(i)
	}

	stats.MatchesGenerated = len(matches)
	logger.Get().Info(ctx, "generated matches successfully", logger.Int("count", len(matches)))
	return matches, nil
}

// match returns the i-th match: four distinct players and a finished score.
func (g *generator) match(i int) Match {
	picked := g.rng.Perm(len(g.players))[:playersPerMatch]
	return Match{
		MatchID:  g.runID + "-m" + strconv.Itoa(i),
		Team1:    []string{g.players[picked[0]], g.players[picked[1]]},
		Team2:    []string{g.players[picked[2]], g.players[picked[3]]},
		Sets:     g.sets(),
		PlayedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// sets returns a best-of-three score that passes rules.Validate.
func (g *generator) sets() []*rules.SetInput {
	team1Wins := g.rng.IntN(2) == 0
	var winners []bool
	if g.rng.IntN(100) < straightSetsPercent {
		winners = []bool{team1Wins, team1Wins}
	} else {
		winners = []bool{team1Wins, !team1Wins, team1Wins}
		if g.rng.IntN(2) == 0 {
			winners[0], winners[1] = winners[1], winners[0]
		}
	}

	out := make([]*rules.SetInput, 0, len(winners))
	for _, team1 := range winners {
		w, l := g.setScore()
		s := rules.Set(l, w)
		if team1 {
			s = rules.Set(w, l)
		}
		out = append(out, &s)
	}
	return out
}

// setScore returns the winner's and loser's games of one set.
func (g *generator) setScore() (winner, loser int) {
	switch n := g.rng.IntN(maxLoserGames + 3); {
	case n <= maxLoserGames:
		return 6, n
	case n == maxLoserGames+1:
		return 7, 5
	default:
		return 7, 6
	}
}

// duplicates returns every nth match again, for idempotency checks.
func duplicates(matches []Match, every int) []Match {
	if every <= 0 {
		return nil
	}
	var out []Match
	for i := 0; i < len(matches); i += every {
		out = append(out, matches[i])
	}
	return out
}

// appearances counts the matches each player played.
func appearances(matches []Match) map[string]int {
	out := make(map[string]int)
	for i := range matches {
		for _, id := range matches[i].Players() {
			out[id]++
		}
	}
	return out
}
