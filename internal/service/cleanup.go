package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Purger removes expired entries from a store that does not expire them itself.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	// Interval is how often the purge runs. Default: 10 minutes
	Interval time.Duration

	// Timeout bounds a single purge run. Default: 1 minute
	Timeout time.Duration
}

// CleanupScheduler periodically purges expired cache entries.
type CleanupScheduler struct {
	purger    Purger
	config    CleanupConfig
	log       *zap.Logger
	ticker    *time.Ticker
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(purger Purger, config CleanupConfig, logger *zap.Logger) *CleanupScheduler {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Minute
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CleanupScheduler{
		purger: purger,
		config: config,
		log:    logger.Named("cleanup"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler. Calling Start twice is a no-op.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)

	s.log.Info("cleanup scheduler started", zap.Duration("interval", s.config.Interval))

	go s.run()
}

// run is the main cleanup loop.
func (s *CleanupScheduler) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stopCh:
			s.log.Info("cleanup scheduler stopped")
			return
		}
	}
}

// RunNow performs one purge and returns the number of removed entries.
func (s *CleanupScheduler) RunNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
	defer cancel()

	purged, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.log.Warn("purge of expired cache entries failed", zap.Error(err))
		return 0, err
	}

	if purged > 0 {
		s.log.Info("purged expired cache entries", zap.Int64("count", purged))
	}
	return purged, nil
}

// Stop stops the scheduler and waits for the loop to exit.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.mu.Unlock()

		if running {
			<-s.doneCh
		}
	})
}
