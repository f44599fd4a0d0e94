// Package types contains common types used across the application
package types

import "github.com/okian/pmr/internal/domain/model"

// Entry represents a leaderboard entry
type Entry struct {
	Rank        int     `json:"rank"`
	PlayerID    string  `json:"player_id"`
	PMR         float64 `json:"pmr"`
	Reliability float64 `json:"reliability"`
	Matches     int     `json:"matches"`
}

// NewEntry builds the leaderboard row for p at rank.
func NewEntry(rank int, p model.Player) Entry {
	return Entry{
		Rank:        rank,
		PlayerID:    p.ID,
		PMR:         p.PMR,
		Reliability: p.Reliability,
		Matches:     p.Matches,
	}
}
