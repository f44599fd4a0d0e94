// Package repository stores player ratings, their ranking and rating history.
package repository

import (
	"context"
	"fmt"

	"github.com/okian/pmr/internal/domain/model"
)

// Entry is a player with their leaderboard rank.
type Entry struct {
	Rank int
	model.Player
}

// TransactFunc receives the current state of the requested players, in the
// requested order, and returns their new state. Returning nil players writes
// nothing. Returning an error aborts the transaction.
type TransactFunc func(players []model.Player) ([]model.Player, error)

// Store provides read/write access to player ratings.
type Store interface {
	// Transact loads ids, calls fn and stores its result atomically with
	// respect to every other Transact on the same players. Unknown players
	// are passed to fn with the initial PMR and zero reliability.
	Transact(ctx context.Context, ids []string, fn TransactFunc) error

	// Get returns a player's stored state or ErrNotFound.
	Get(ctx context.Context, id string) (model.Player, error)

	// Rank returns a player's leaderboard entry. Players with equal PMR share
	// a rank and the next rank skips accordingly.
	Rank(ctx context.Context, id string) (Entry, error)

	// TopN returns the n best players ordered by PMR desc, then id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of stored players.
	Count(ctx context.Context) (int, error)

	// AppendHistory records rating changes.
	AppendHistory(ctx context.Context, entries []model.HistoryEntry) error

	// History returns up to limit of a player's changes, newest first.
	History(ctx context.Context, id string, limit int) ([]model.HistoryEntry, error)

	Close() error
}

// checkIDs rejects a transaction that names the same player twice.
func checkIDs(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// checkResult makes sure fn returned one player per requested id, in order.
func checkResult(ids []string, players []model.Player) error {
	if len(players) != len(ids) {
		return fmt.Errorf("transaction returned %d players for %d ids", len(players), len(ids))
	}
	for i, p := range players {
		if p.ID != ids[i] {
			return fmt.Errorf("transaction returned player %q in place of %q", p.ID, ids[i])
		}
	}
	return nil
}

var (
	_ Store = (*TreapStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
