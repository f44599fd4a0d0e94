package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/pmr/internal/domain/model"
	"github.com/okian/pmr/pkg/metrics"
)

//go:embed schema.sql
var schema embed.FS

// PostgresStore persists players and history in PostgreSQL.
type PostgresStore struct {
	opts options
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{opts: newOptions(opts), pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Transact locks the players' rows in id order so concurrent matches sharing
// a player serialize without deadlocking.
func (s *PostgresStore) Transact(ctx context.Context, ids []string, fn TransactFunc) error {
	if err := checkIDs(ids); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	locked := slices.Clone(ids)
	slices.Sort(locked)
	for _, id := range locked {
		if _, err := tx.Exec(ctx, `
			INSERT INTO players(id, pmr) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, id, s.opts.initialPMR); err != nil {
			return err
		}
	}

	byID := make(map[string]model.Player, len(ids))
	rows, err := tx.Query(ctx, `
		SELECT id, pmr, reliability, matches, updated_at
		  FROM players
		 WHERE id = ANY($1)
		 ORDER BY id
		   FOR UPDATE
	`, locked)
	if err != nil {
		return err
	}
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.PMR, &p.Reliability, &p.Matches, &p.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
		byID[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	current := make([]model.Player, len(ids))
	for i, id := range ids {
		current[i] = byID[id]
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	if err := checkResult(ids, next); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, p := range next {
		batch.Queue(`
			UPDATE players
			   SET pmr = $2, reliability = $3, matches = $4, updated_at = $5
			 WHERE id = $1
		`, p.ID, p.PMR, p.Reliability, p.Matches, p.UpdatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Get returns a player's stored state.
func (s *PostgresStore) Get(ctx context.Context, id string) (model.Player, error) {
	var p model.Player
	err := s.pool.QueryRow(ctx, `
		SELECT id, pmr, reliability, matches, updated_at
		  FROM players WHERE id = $1
	`, id).Scan(&p.ID, &p.PMR, &p.Reliability, &p.Matches, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Player{}, ErrNotFound
	}
	return p, err
}

// Rank returns the player's entry.
func (s *PostgresStore) Rank(ctx context.Context, id string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	var e Entry
	err := s.pool.QueryRow(ctx, `
		SELECT p.id, p.pmr, p.reliability, p.matches, p.updated_at,
		       (SELECT count(*) FROM players q WHERE q.pmr > p.pmr) + 1
		  FROM players p
		 WHERE p.id = $1
	`, id).Scan(&e.ID, &e.PMR, &e.Reliability, &e.Matches, &e.UpdatedAt, &e.Rank)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return e, err
}

// TopN returns the top n entries ordered by PMR desc, then id asc.
func (s *PostgresStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, pmr, reliability, matches, updated_at,
		       RANK() OVER (ORDER BY pmr DESC)
		  FROM players
		 ORDER BY pmr DESC, id ASC
		 LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PMR, &e.Reliability, &e.Matches, &e.UpdatedAt, &e.Rank); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of players.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM players`).Scan(&n)
	return n, err
}

// AppendHistory inserts entries in one batch.
func (s *PostgresStore) AppendHistory(ctx context.Context, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO rating_history(
				player_id, match_id,
				previous_pmr, new_pmr, delta,
				previous_reliability, new_reliability, delta_reliability,
				at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, e.PlayerID, e.MatchID,
			e.PreviousPMR, e.NewPMR, e.Delta,
			e.PreviousReliability, e.NewReliability, e.DeltaReliability,
			e.At)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	metrics.RecordRepositoryHistory(len(entries))
	return nil
}

// History returns a player's most recent changes, newest first.
func (s *PostgresStore) History(ctx context.Context, id string, limit int) ([]model.HistoryEntry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT match_id, at, player_id,
		       previous_pmr, new_pmr, delta,
		       previous_reliability, new_reliability, delta_reliability
		  FROM rating_history
		 WHERE player_id = $1
		 ORDER BY id DESC
		 LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		if err := rows.Scan(&e.MatchID, &e.At, &e.PlayerID,
			&e.PreviousPMR, &e.NewPMR, &e.Delta,
			&e.PreviousReliability, &e.NewReliability, &e.DeltaReliability); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
