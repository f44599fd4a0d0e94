// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/okian/pmr/internal/domain/rating"
)

// Match is a completed doubles match submitted for rating.
type Match struct {
	MatchID  string             // unique id for idempotency
	Team1    [2]string          // player ids of team 1
	Team2    [2]string          // player ids of team 2
	Sets     [3]rating.SetScore // validated set scores
	PlayedAt time.Time          // when the match was played
	Received time.Time          // when the service accepted it
}

// PlayerIDs returns the four player ids in result order.
func (m Match) PlayerIDs() [4]string {
	return [4]string{m.Team1[0], m.Team1[1], m.Team2[0], m.Team2[1]}
}

// Validate checks that the match names four distinct, non-empty players.
func (m Match) Validate() error {
	seen := make(map[string]struct{}, 4)
	for _, id := range m.PlayerIDs() {
		if id == "" {
			return fmt.Errorf("%w: empty player id", ErrInvalidMatch)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %q appears twice", ErrInvalidMatch, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Player is the persisted rating state of one player.
type Player struct {
	ID          string
	PMR         float64
	Reliability float64
	Matches     int // rated matches played
	UpdatedAt   time.Time
}

// Snapshot converts p to the engine's input form.
func (p Player) Snapshot() rating.PlayerSnapshot {
	return rating.PlayerSnapshot{ID: p.ID, PMR: p.PMR, Reliability: p.Reliability}
}

// HistoryEntry is one player's rating change from one match.
type HistoryEntry struct {
	MatchID string    `json:"match_id"`
	At      time.Time `json:"at"`
	rating.Result
}

// RatingUpdate is published after a match has been handled.
type RatingUpdate struct {
	MatchID string           `json:"match_id"`
	Outcome string           `json:"outcome"`
	Results [4]rating.Result `json:"results"`
	At      time.Time        `json:"at"`
}
