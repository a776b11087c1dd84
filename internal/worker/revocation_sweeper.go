package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ride-auth-service/internal/repository"
)

// RevocationSweeper periodically deletes revocation entries past their
// retention window. Lookups already ignore such entries; sweeping only
// reclaims storage.
type RevocationSweeper struct {
	store    repository.Sweeper
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewRevocationSweeper builds a sweeper for the given store.
func NewRevocationSweeper(store repository.Sweeper, interval time.Duration, logger *zap.Logger) *RevocationSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationSweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop. It runs until ctx is cancelled or Stop is called.
func (s *RevocationSweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
}

// SweepOnce runs a single sweep and logs the outcome.
func (s *RevocationSweeper) SweepOnce(ctx context.Context) int64 {
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.Warn("revocation sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		s.logger.Info("revocation sweep", zap.Int64("removed", removed))
	}
	return removed
}

// Stop halts the loop and waits for it to exit.
func (s *RevocationSweeper) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
