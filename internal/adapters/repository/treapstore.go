package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/pmr/internal/domain/model"
	"github.com/okian/pmr/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: PMR DESC, then player id ASC (deterministic). "less" means ranks
// earlier, so in-order traversal yields the leaderboard from best to worst.
// Every node carries its subtree size, which gives rank in O(log n).

// treap node
type node struct {
	id    string
	pmr   float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aPMR, aID) should appear before (bPMR, bID).
func less(aPMR float64, aID string, bPMR float64, bID string) bool {
	if aPMR != bPMR {
		return aPMR > bPMR
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priority hashes the player id. The tree shape then depends only on the set
// of keys, not on insertion order or rating values.
func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, id string, pmr float64) *node {
	if n == nil {
		return &node{id: id, pmr: pmr, prio: priority(id), size: 1}
	}
	if less(pmr, id, n.pmr, n.id) {
		n.left = insert(n.left, id, pmr)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, pmr)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, pmr float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case pmr == n.pmr && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, pmr)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, pmr)
		}
	case less(pmr, id, n.pmr, n.id):
		n.left = deleteNode(n.left, id, pmr)
	default:
		n.right = deleteNode(n.right, id, pmr)
	}
	fix(n)
	return n
}

// countAbove returns the number of players with a PMR strictly above pmr.
func countAbove(n *node, pmr float64) int {
	count := 0
	for n != nil {
		if n.pmr > pmr {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit player ids in rank order.
func collectTopN(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapStore keeps all players in memory.
type TreapStore struct {
	opts options

	mu      sync.RWMutex
	root    *node
	byID    map[string]model.Player
	history map[string][]model.HistoryEntry // oldest first, capped at historySize

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		opts:     newOptions(opts),
		byID:     make(map[string]model.Player),
		history:  make(map[string][]model.HistoryEntry),
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Transact implements Store.Transact under the store's write lock.
func (s *TreapStore) Transact(ctx context.Context, ids []string, fn TransactFunc) error {
	if err := checkIDs(ids); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	current := make([]model.Player, len(ids))
	for i, id := range ids {
		p, ok := s.byID[id]
		if !ok {
			p = model.Player{ID: id, PMR: s.opts.initialPMR}
		}
		current[i] = p
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	if err := checkResult(ids, next); err != nil {
		return err
	}

	for _, p := range next {
		if old, ok := s.byID[p.ID]; ok {
			s.root = deleteNode(s.root, old.ID, old.PMR)
		}
		s.byID[p.ID] = p
		s.root = insert(s.root, p.ID, p.PMR)
	}
	return nil
}

// Get returns a player's stored state.
func (s *TreapStore) Get(_ context.Context, id string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return p, nil
}

// Rank returns the player's entry in O(log n).
func (s *TreapStore) Rank(_ context.Context, id string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return Entry{Rank: countAbove(s.root, p.PMR) + 1, Player: p}, nil
}

// TopN returns the top n entries ordered by PMR desc.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, &ids)

	out := make([]Entry, len(ids))
	for i, id := range ids {
		out[i] = Entry{Rank: i + 1, Player: s.byID[id]}
		if i > 0 && out[i].PMR == out[i-1].PMR {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out, nil
}

// Count returns the total number of players.
func (s *TreapStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// AppendHistory stores entries, dropping each player's oldest beyond the cap.
func (s *TreapStore) AppendHistory(_ context.Context, entries []model.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		h := append(s.history[e.PlayerID], e)
		if over := len(h) - s.opts.historySize; over > 0 {
			h = append(h[:0:0], h[over:]...)
		}
		s.history[e.PlayerID] = h
	}
	metrics.RecordRepositoryHistory(len(entries))
	return nil
}

// History returns a player's most recent changes, newest first.
func (s *TreapStore) History(_ context.Context, id string, limit int) ([]model.HistoryEntry, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[id]; !ok {
		return nil, ErrNotFound
	}
	h := s.history[id]
	n := min(limit, len(h))
	out := make([]model.HistoryEntry, n)
	for i := range n {
		out[i] = h[len(h)-1-i]
	}
	return out, nil
}

// startMetricsUpdater publishes the player count periodically.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.Count(ctx)
				metrics.UpdateRepositoryRecordsTotal(n)
			}
		}
	}()
}
