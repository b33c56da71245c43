// Package service wires the selection-board store, scoring engine,
// recompute queue, workers and leaderboard cache behind the operations the
// HTTP API and CLI use.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/adapters/mq/queue"
	workerpool "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/adapters/mq/worker"
	repository "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/adapters/repository"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/dedupe"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	types "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/types"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/metrics"
)

const (
	defaultQueueSize       = 10000
	defaultPendingSize     = 50000
	defaultMaxLimit        = 1000
	defaultDBPath          = "psb.db"
	defaultStopGracePeriod = 10 * time.Second
	defaultMetricsInterval = 5 * time.Second
)

// cachedRubric is a rebuilt round rubric and the fingerprint of the stored
// spec it was built from.
type cachedRubric struct {
	sum    uint64
	rubric *scoring.Rubric
}

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the selection-board operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       repository.Store
	leaderboard repository.Leaderboard
	pending     dedupe.Deduper
	queue       eventqueue.Queue
	pool        *workerpool.Pool

	rubrics    *scoring.RubricSet
	rubricOpts []scoring.RubricOption

	// Rebuilt rubrics of stored rounds, keyed by round id.
	cacheMu     sync.RWMutex
	roundRubric map[string]cachedRubric

	// Configuration
	workerCount int
	queueSize   int
	pendingSize int
	maxLimit    int
	dbPath      string
	now         func() time.Time

	metricsInterval time.Duration

	started bool
	logger  logger.Logger
}

// New constructs a Service. Components are created by Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   defaultQueueSize,
		pendingSize: defaultPendingSize,
		maxLimit:    defaultMaxLimit,
		dbPath:      defaultDBPath,
		now:         time.Now,
		roundRubric: make(map[string]cachedRubric),

		metricsInterval: defaultMetricsInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, starts the workers and fills the leaderboard cache
// from stored rounds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.rubrics == nil {
		return fmt.Errorf("start service: %w", scoring.ErrConfig)
	}

	s.logger.Info(ctx, "starting selection board service...")

	if s.store == nil {
		store, err := repository.NewSQLiteStore(s.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.logger.Info(ctx, "opened sqlite store", logger.String("path", s.dbPath))
	}

	s.leaderboard = repository.NewTreapStore(ctx,
		repository.WithMetricsUpdateInterval(s.metricsInterval))
	s.pending = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.pendingSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s.leaderboard,
		workerpool.WithReleaser(s.pending))

	if err := s.warm(ctx); err != nil {
		s.logger.Warn(ctx, "leaderboard warm-up incomplete", logger.Error(err))
	}
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "selection board service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("pendingSize", s.pendingSize),
	)
	return nil
}

// warm computes every stored candidate into the leaderboard cache.
func (s *Service) warm(ctx context.Context) error {
	rounds, err := s.store.ListRounds(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range rounds {
		standings, _, err := s.standings(ctx, s.store, r)
		if err != nil {
			errs = append(errs, fmt.Errorf("round %s: %w", r.ID, err))
			continue
		}
		for _, st := range standings {
			if err := s.leaderboard.Upsert(ctx, r.ID, st); err != nil {
				errs = append(errs, err)
			}
		}
	}
	s.logger.Info(ctx, "leaderboard warmed", logger.Int("rounds", len(rounds)))
	return errors.Join(errs...)
}

// Stop drains the recompute queue and releases every component.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultStopGracePeriod)
	defer cancel()

	s.logger.Info(ctx, "stopping selection board service...")

	// Workers still read the store while draining.
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	if err := s.leaderboard.Close(); err != nil {
		s.logger.Warn(ctx, "leaderboard close", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}
	s.store = nil
	s.logger.Info(ctx, "selection board service stopped")
}

// ready returns the store when the service is running.
func (s *Service) ready() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Rubrics returns the rubric set new rounds are created from.
func (s *Service) Rubrics() *scoring.RubricSet { return s.rubrics }

// enqueueRecompute asks the workers to refresh one candidate. Requests for a
// candidate that is already pending are coalesced. When the queue rejects the
// request the candidate is refreshed inline.
func (s *Service) enqueueRecompute(ctx context.Context, roundID, code string) {
	key := dedupe.Key(roundID, code)
	if s.pending.SeenAndRecord(ctx, key) {
		metrics.RecordRecomputeCoalesced()
		return
	}
	err := s.queue.Enqueue(ctx, eventqueue.Event{RoundID: roundID, CandidateCode: code})
	if err == nil {
		return
	}
	s.pending.Unrecord(ctx, key)
	s.logger.Warn(ctx, "recompute not queued, refreshing inline",
		logger.String("round", roundID),
		logger.String("candidate", code),
		logger.Error(err))
	st, err := s.Score(ctx, roundID, code)
	if err != nil {
		s.logger.Error(ctx, "inline recompute failed", logger.Error(err))
		return
	}
	if err := s.leaderboard.Upsert(ctx, roundID, st); err != nil {
		s.logger.Error(ctx, "inline leaderboard update failed", logger.Error(err))
	}
}

// GetStats returns an operational snapshot.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	store, err := s.ready()
	if err != nil {
		return types.Stats{}, err
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	stats := types.Stats{
		Rounds:        counts.Rounds,
		OpenRounds:    counts.OpenRounds,
		Candidates:    counts.Candidates,
		Submissions:   counts.Submissions,
		QueueDepth:    s.queue.Len(ctx),
		QueueCapacity: s.queue.Capacity(),
		Pending:       int(s.pending.Size()),
		Workers:       s.pool.Size(),
		Leaderboards:  s.leaderboard.Count(ctx),
	}

	metrics.UpdateOpenRounds(counts.OpenRounds)
	metrics.UpdateTotalCandidates(counts.Candidates)
	metrics.UpdateQueueSize(stats.QueueDepth)
	return stats, nil
}
