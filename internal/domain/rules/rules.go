// Package rules validates raw best-of-three set scores before they reach the
// rating engine.
package rules

import (
	"fmt"

	"github.com/okian/pmr/internal/domain/rating"
)

const (
	maxGames     = 7
	setGames     = 6
	maxLoserAt6  = 4
	setsToWin    = 2
	tiebreakLose = 6
	advantageWin = 5
)

// SetInput is one set as submitted. Both counts are nil for an unplayed set.
type SetInput struct {
	Team1 *int `json:"team1"`
	Team2 *int `json:"team2"`
}

// Set returns a played SetInput.
func Set(team1, team2 int) SetInput {
	return SetInput{Team1: &team1, Team2: &team2}
}

// Validate checks the three submitted sets and converts them to engine set
// scores. Sets one and two must be played. Set three must be played exactly
// when the first two are split.
func Validate(sets [3]SetInput) ([3]rating.SetScore, error) {
	var out [3]rating.SetScore
	var wins1, wins2 int

	for i, s := range sets {
		n := i + 1
		switch {
		case s.Team1 == nil && s.Team2 == nil:
			if n < 3 {
				return out, fmt.Errorf("%w: set %d is required", ErrInvalidScore, n)
			}
			if wins1 != wins2 {
				continue
			}
			return out, fmt.Errorf("%w: set 3 is required after a split", ErrInvalidScore)
		case s.Team1 == nil || s.Team2 == nil:
			return out, fmt.Errorf("%w: set %d is half filled", ErrInvalidScore, n)
		}

		g1, g2 := *s.Team1, *s.Team2
		if n == 3 && wins1 != wins2 {
			return out, fmt.Errorf("%w: set 3 played after the match was decided", ErrInvalidScore)
		}
		if !ValidSet(g1, g2) {
			return out, fmt.Errorf("%w: set %d score %d-%d", ErrInvalidScore, n, g1, g2)
		}
		if g1 > g2 {
			wins1++
		} else {
			wins2++
		}
		out[i] = rating.Played(g1, g2)
	}

	if wins1 < setsToWin && wins2 < setsToWin {
		return out, fmt.Errorf("%w: no team won two sets", ErrInvalidScore)
	}
	return out, nil
}

// ValidSet reports whether g1-g2 is a finished set: 6-0 to 6-4, 7-5 or 7-6,
// in either direction.
func ValidSet(g1, g2 int) bool {
	if g1 < 0 || g2 < 0 || g1 > maxGames || g2 > maxGames {
		return false
	}
	w, l := max(g1, g2), min(g1, g2)
	switch w {
	case setGames:
		return l <= maxLoserAt6
	case maxGames:
		return l == advantageWin || l == tiebreakLose
	}
	return false
}
