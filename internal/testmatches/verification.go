package testmatches

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/pmr/pkg/logger"
)

// verifyResults checks the player entries and the leaderboard against each
// other and against the matches that were played. expected may be nil when
// some submissions failed and per-player match counts are unknown.
func verifyResults(ctx context.Context, cfg *Config, players, leaderboard []Entry, expected map[string]int) error {
	log := logger.Get()
	log.Info(ctx, "verifying results")

	if len(players) == 0 {
		return errors.New("no players to verify")
	}

	var errs []error
	errs = append(errs, verifyBounds(players)...)
	if expected != nil {
		errs = append(errs, verifyMatchCounts(players, expected)...)
	}
	errs = append(errs, verifyCompetitionRanks(players)...)
	if len(leaderboard) > 0 {
		errs = append(errs, verifyLeaderboard(players, leaderboard)...)
	}

	displayTopPlayers(ctx, leaderboard, cfg.Verbose)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info(ctx, "result verification completed")
	return nil
}

// verifyBounds checks every rating stays inside its clamp range.
func verifyBounds(players []Entry) []error {
	var errs []error
	for _, p := range players {
		if p.PMR < minPMR || p.PMR > maxPMR {
			errs = append(errs, fmt.Errorf("player %s: pmr %.4f out of range", p.PlayerID, p.PMR))
		}
		if p.Reliability < minReliability || p.Reliability > maxReliability {
			errs = append(errs, fmt.Errorf("player %s: reliability %.4f out of range", p.PlayerID, p.Reliability))
		}
	}
	return errs
}

// verifyMatchCounts checks each player was rated once per match played.
func verifyMatchCounts(players []Entry, expected map[string]int) []error {
	var errs []error
	for _, p := range players {
		if want := expected[p.PlayerID]; p.Matches != want {
			errs = append(errs, fmt.Errorf("player %s: %d matches rated, want %d", p.PlayerID, p.Matches, want))
		}
	}
	return errs
}

// verifyCompetitionRanks checks that, within the fetched players, a higher
// PMR never has a worse rank and equal PMR shares a rank. Ranks are global,
// so only their order is compared.
func verifyCompetitionRanks(players []Entry) []error {
	sorted := make([]Entry, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PMR > sorted[j].PMR })

	var errs []error
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		switch {
		case prev.PMR == cur.PMR && prev.Rank != cur.Rank:
			errs = append(errs, fmt.Errorf("players %s and %s share pmr %.4f but have ranks %d and %d",
				prev.PlayerID, cur.PlayerID, cur.PMR, prev.Rank, cur.Rank))
		case prev.PMR > cur.PMR && prev.Rank >= cur.Rank:
			errs = append(errs, fmt.Errorf("player %s (pmr %.4f) ranked %d, not above %s (pmr %.4f) ranked %d",
				prev.PlayerID, prev.PMR, prev.Rank, cur.PlayerID, cur.PMR, cur.Rank))
		}
	}
	return errs
}

// verifyLeaderboard checks the leaderboard is ordered and agrees with the
// player entries it shares.
func verifyLeaderboard(players, leaderboard []Entry) []error {
	byID := make(map[string]Entry, len(players))
	for _, p := range players {
		byID[p.PlayerID] = p
	}

	var errs []error
	for i, e := range leaderboard {
		if i > 0 {
			prev := leaderboard[i-1]
			if e.PMR > prev.PMR || (e.PMR == prev.PMR && e.PlayerID < prev.PlayerID) {
				errs = append(errs, fmt.Errorf("leaderboard not properly sorted at entry %d", i))
			}
		}
		if i == 0 && e.Rank != 1 {
			errs = append(errs, fmt.Errorf("leaderboard starts at rank %d", e.Rank))
		}
		p, ok := byID[e.PlayerID]
		if !ok {
			continue
		}
		if p.Rank != e.Rank || p.PMR != e.PMR {
			errs = append(errs, fmt.Errorf("player %s: leaderboard has rank %d pmr %.4f, player entry has rank %d pmr %.4f",
				e.PlayerID, e.Rank, e.PMR, p.Rank, p.PMR))
		}
	}
	return errs
}

// displayTopPlayers logs the head of the leaderboard.
func displayTopPlayers(ctx context.Context, leaderboard []Entry, verbose bool) {
	topN := min(10, len(leaderboard))
	log := logger.Get()
	for _, e := range leaderboard[:topN] {
		log.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("player_id", e.PlayerID),
			logger.Float64("pmr", e.PMR),
			logger.Float64("reliability", e.Reliability))
	}

	if verbose && len(leaderboard) > 0 {
		log.Info(ctx, "pmr statistics",
			logger.Float64("average", averagePMR(leaderboard)),
			logger.Float64("maximum", leaderboard[0].PMR),
			logger.Float64("minimum", leaderboard[len(leaderboard)-1].PMR))
	}
}

// averagePMR calculates the average PMR of entries.
func averagePMR(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.PMR
	}
	return sum / float64(len(entries))
}
