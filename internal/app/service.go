// Package service wires the rating engine to storage, deduplication and the
// asynchronous match queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pmr/internal/adapters/mq/queue"
	"github.com/okian/pmr/internal/adapters/mq/worker"
	"github.com/okian/pmr/internal/adapters/repository"
	"github.com/okian/pmr/internal/domain/dedupe"
	"github.com/okian/pmr/internal/domain/model"
	"github.com/okian/pmr/internal/domain/rating"
	"github.com/okian/pmr/internal/domain/types"
	"github.com/okian/pmr/pkg/logger"
	"github.com/okian/pmr/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize   = 100_000
	defaultDedupeSize  = 50_000
	defaultHistorySize = 50
	defaultInitialPMR  = 3.5
	stopTimeout        = 30 * time.Second
)

// SubmitStatus reports what Submit did with a match.
type SubmitStatus int

// Submit statuses.
const (
	SubmitAccepted SubmitStatus = iota
	SubmitDuplicate
)

func (s SubmitStatus) String() string {
	if s == SubmitDuplicate {
		return "duplicate"
	}
	return "accepted"
}

// Publisher receives every handled match.
type Publisher interface {
	Publish(update model.RatingUpdate)
}

// Service is the rating application: it accepts matches, rates them in the
// background and answers leaderboard queries.
type Service struct {
	mu        sync.RWMutex
	started   bool
	accepting bool

	store     repository.Store
	ownsStore bool
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	engine    *rating.Engine
	publisher Publisher

	// Configuration
	params      rating.Params
	workerCount int
	queueSize   int
	dedupeSize  int
	historySize int
	initialPMR  float64

	rated    atomic.Int64
	noop     atomic.Int64
	rejected atomic.Int64

	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued matches.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the number of remembered match ids.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithParams sets the rating model parameters.
func WithParams(p rating.Params) Option {
	return func(s *Service) {
		s.params = p
	}
}

// WithStore sets the player store. The caller keeps ownership and closes it.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithInitialPMR sets the rating of a player seen for the first time. It only
// applies to the default in-memory store.
func WithInitialPMR(pmr float64) Option {
	return func(s *Service) {
		s.initialPMR = pmr
	}
}

// WithHistorySize sets how many rating changes are kept per player by the
// default in-memory store.
func WithHistorySize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithPublisher registers a receiver for rating updates.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		params:      rating.DefaultParams(),
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		historySize: defaultHistorySize,
		initialPMR:  defaultInitialPMR,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the configuration and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.params.Validate(); err != nil {
		return err
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting rating service...")

	if s.store == nil {
		s.store = repository.NewTreapStore(ctx,
			repository.WithInitialPMR(s.initialPMR),
			repository.WithHistorySize(s.historySize),
		)
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory treap store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.engine = rating.NewEngine(s.params)

	// Workers outlive the start context; Stop drains them.
	s.pool = worker.NewPool(s.workerCount, s.queue, s, s.logger)
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.accepting = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop stops accepting matches, rates whatever is still queued and releases
// the components. A stopped service can be started again.
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started || !s.accepting {
		s.mu.Unlock()
		return nil
	}
	s.accepting = false
	pool := s.pool
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping rating service...")

	// Workers keep rating through RateMatch until the queue is drained.
	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "rating service stopped")
	return errors.Join(errs...)
}

// Submit validates m and queues it for rating. A match id seen before is
// reported as SubmitDuplicate and not queued again.
func (s *Service) Submit(ctx context.Context, m model.Match) (SubmitStatus, error) { //nolint:gocritic // hugeParam: value semantics
	if err := m.Validate(); err != nil {
		metrics.RecordMatchRejected("invalid")
		return SubmitAccepted, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.accepting {
		return SubmitAccepted, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, m.MatchID) {
		metrics.RecordMatchDuplicate()
		s.logger.Debug(ctx, "duplicate match", logger.String("match_id", m.MatchID))
		return SubmitDuplicate, nil
	}

	if err := s.queue.Enqueue(ctx, m); err != nil {
		s.deduper.Unrecord(ctx, m.MatchID)
		if errors.Is(err, queue.ErrFull) {
			s.logger.Warn(ctx, "match queue full", logger.String("match_id", m.MatchID))
			return SubmitAccepted, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return SubmitAccepted, err
	}

	metrics.RecordMatchReceived()
	return SubmitAccepted, nil
}

// RateMatch rates m against the stored state of its players and stores the
// result. It is called by the workers for every queued match and may be
// called directly for synchronous rating.
func (s *Service) RateMatch(ctx context.Context, m model.Match) ([4]rating.Result, rating.Outcome, error) { //nolint:gocritic // hugeParam: value semantics
	st, engine, err := s.components()
	if err != nil {
		return [4]rating.Result{}, rating.OutcomeRejected, err
	}

	start := time.Now()
	var (
		results [4]rating.Result
		outcome rating.Outcome
	)
	ids := m.PlayerIDs()
	err = st.Transact(ctx, ids[:], func(players []model.Player) ([]model.Player, error) {
		rm := rating.Match{
			Team1: [2]rating.PlayerSnapshot{players[0].Snapshot(), players[1].Snapshot()},
			Team2: [2]rating.PlayerSnapshot{players[2].Snapshot(), players[3].Snapshot()},
			Sets:  m.Sets,
		}
		var err error
		results, outcome, err = engine.Update(rm)
		if err != nil || outcome != rating.OutcomeRated {
			return nil, err
		}

		now := s.now()
		next := make([]model.Player, len(players))
		for i, p := range players {
			p.PMR = results[i].NewPMR
			p.Reliability = results[i].NewReliability
			p.Matches++
			p.UpdatedAt = now
			next[i] = p
		}
		return next, nil
	})
	if err != nil {
		s.rejected.Add(1)
		reason := "store"
		if errors.Is(err, rating.ErrUndecidedMatch) {
			reason = "undecided"
		}
		metrics.RecordMatchRejected(reason)
		s.logger.Warn(ctx, "match rejected",
			logger.String("match_id", m.MatchID),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return [4]rating.Result{}, rating.OutcomeRejected, err
	}

	at := s.now()
	switch outcome {
	case rating.OutcomeRated:
		s.rated.Add(1)
		s.recordHistory(ctx, st, m.MatchID, at, results)

		deltas := make([]float64, len(results))
		rels := make([]float64, len(results))
		for i, r := range results {
			deltas[i] = r.Delta
			rels[i] = r.NewReliability
		}
		metrics.RecordMatchRated(deltas, rels)
		if n, err := st.Count(ctx); err == nil {
			metrics.UpdatePlayersTotal(n)
		}
	case rating.OutcomeNoOp:
		s.noop.Add(1)
		metrics.RecordMatchNoOp()
	}
	metrics.RecordRatingLatency(float64(time.Since(start).Microseconds()) / 1000)

	if s.publisher != nil {
		s.publisher.Publish(model.RatingUpdate{
			MatchID: m.MatchID,
			Outcome: outcome.String(),
			Results: results,
			At:      at,
		})
	}
	return results, outcome, nil
}

// recordHistory stores the four rating changes. Ratings are already committed,
// so a failure here is logged and not returned.
func (s *Service) recordHistory(ctx context.Context, st repository.Store, matchID string, at time.Time, results [4]rating.Result) {
	entries := make([]model.HistoryEntry, len(results))
	for i, r := range results {
		entries[i] = model.HistoryEntry{MatchID: matchID, At: at, Result: r}
	}
	if err := st.AppendHistory(ctx, entries); err != nil {
		metrics.RecordErrorByComponent("service", "history")
		s.logger.Error(ctx, "failed to record rating history",
			logger.String("match_id", matchID),
			logger.Error(err),
		)
	}
}

// Preview rates m with the service parameters merged with o, without reading
// or writing any stored state.
func (s *Service) Preview(_ context.Context, m rating.Match, o rating.Overrides) ([4]rating.Result, rating.Outcome, error) { //nolint:gocritic // hugeParam: value semantics
	p := s.params.With(o)
	if err := p.Validate(); err != nil {
		return [4]rating.Result{}, rating.OutcomeRejected, err
	}
	return rating.NewEngine(p).Update(m)
}

// Params returns the rating parameters the service rates with.
func (s *Service) Params() rating.Params { return s.params }

// TopN returns the top n leaderboard entries.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	st, _, err := s.components()
	if err != nil {
		return nil, err
	}
	entries, err := st.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.NewEntry(e.Rank, e.Player)
	}
	return out, nil
}

// Rank returns the leaderboard entry of one player.
func (s *Service) Rank(ctx context.Context, playerID string) (types.Entry, error) {
	st, _, err := s.components()
	if err != nil {
		return types.Entry{}, err
	}
	e, err := st.Rank(ctx, playerID)
	if err != nil {
		return types.Entry{}, err
	}
	return types.NewEntry(e.Rank, e.Player), nil
}

// Player returns a player's leaderboard entry together with their most recent
// rating changes, newest first.
func (s *Service) Player(ctx context.Context, playerID string, historyLimit int) (types.Entry, []model.HistoryEntry, error) {
	entry, err := s.Rank(ctx, playerID)
	if err != nil {
		return types.Entry{}, nil, err
	}
	history, err := s.History(ctx, playerID, historyLimit)
	if err != nil {
		return types.Entry{}, nil, err
	}
	return entry, history, nil
}

// History returns up to limit of a player's rating changes, newest first.
func (s *Service) History(ctx context.Context, playerID string, limit int) ([]model.HistoryEntry, error) {
	st, _, err := s.components()
	if err != nil {
		return nil, err
	}
	return st.History(ctx, playerID, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":          s.started,
		"worker_count":     s.workerCount,
		"queue_size":       s.queueSize,
		"dedupe_size":      s.dedupeSize,
		"matches_rated":    s.rated.Load(),
		"matches_noop":     s.noop.Load(),
		"matches_rejected": s.rejected.Load(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queue_length"] = queueLen
		stats["dedupe_entries"] = s.deduper.Size()
		if n, err := s.store.Count(ctx); err == nil {
			stats["players"] = n
			metrics.UpdatePlayersTotal(n)
		}
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

// components returns the store and engine of a started service.
func (s *Service) components() (repository.Store, *rating.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.engine, nil
}
