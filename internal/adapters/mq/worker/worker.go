// Package worker rates queued matches asynchronously.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/pmr/internal/domain/model"
	"github.com/okian/pmr/internal/domain/rating"
	"github.com/okian/pmr/pkg/logger"
	"github.com/okian/pmr/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// ErrShutdownTimeout is returned when workers do not drain in time.
var ErrShutdownTimeout = errors.New("worker shutdown timed out")

// Rater rates one match and stores the outcome.
type Rater interface {
	RateMatch(ctx context.Context, m model.Match) ([4]rating.Result, rating.Outcome, error)
}

// Queue defines how workers receive matches.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Match
}

// InMemoryWorker pulls matches off a queue and hands them to a Rater.
type InMemoryWorker struct {
	queue Queue
	rater Rater
	name  string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, rater Rater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		rater:    rater,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes matches until the queue is drained and closed, ctx is done
// or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	matches := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case m, ok := <-matches:
			if !ok {
				return
			}
			if err := w.process(ctx, m); err != nil {
				w.logger.Error(ctx, "error rating match", logger.String("match_id", m.MatchID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current match.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, m model.Match) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	metrics.IncWorkerActive()
	start := time.Now()
	defer func() {
		metrics.DecWorkerActive()
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	_, outcome, err := w.rater.RateMatch(ctx, m)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "rate_failed")
		return fmt.Errorf("rate match %s: %w", m.MatchID, err)
	}
	w.logger.Debug(ctx, "match handled",
		logger.String("match_id", m.MatchID),
		logger.String("outcome", outcome.String()),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing queue and rater. A count below
// one picks a default based on the CPU count.
func NewPool(workerCount int, queue Queue, rater Rater, log logger.Logger) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	if log == nil {
		log = logger.Get()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  log.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, rater,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(log),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// busy when ctx (or the pool timeout) expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stopOnce.Do(func() { close(w.shutdown) })
		}
	}
	if timedOut {
		return ErrShutdownTimeout
	}
	return nil
}
