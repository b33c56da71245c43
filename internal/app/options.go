package service

import (
	"time"

	repository "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/adapters/repository"
	scoring "github.com/Aimisnotavailable/DEPEDHRMPSB/internal/domain/scoring"
	"github.com/Aimisnotavailable/DEPEDHRMPSB/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithPendingSize bounds the number of coalesced pending recomputes.
func WithPendingSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pendingSize = size
		}
	}
}

// WithMaxLeaderboardLimit caps how many entries a leaderboard read returns.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithMetricsInterval sets how often the leaderboard cache reports its size.
func WithMetricsInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.metricsInterval = interval
		}
	}
}

// WithDBPath sets the SQLite database file opened on Start.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithStore uses an already opened store instead of opening WithDBPath.
// The service takes ownership and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithRubricSet sets the rubrics new rounds can be created from.
func WithRubricSet(set *scoring.RubricSet) Option {
	return func(s *Service) {
		if set != nil {
			s.rubrics = set
		}
	}
}

// WithRubricOptions sets the options every rubric is validated with.
func WithRubricOptions(opts ...scoring.RubricOption) Option {
	return func(s *Service) {
		s.rubricOpts = append([]scoring.RubricOption(nil), opts...)
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

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
