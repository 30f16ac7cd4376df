// Package services hosts background maintenance for the check-in core.
package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/campuskit/checkin/internal/ratelimit"
	"github.com/campuskit/checkin/repository"
)

// Sweeper periodically evicts expired sessions and stale rate-limit windows.
// Correctness never depends on it: Get evicts lazily and every session arms
// its own expiry timer. The sweep only bounds memory between accesses.
type Sweeper struct {
	store    repository.SessionStore
	limiter  *ratelimit.Limiter
	interval time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewSweeper(store repository.SessionStore, limiter *ratelimit.Limiter, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		limiter:  limiter,
		interval: interval,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start schedules the sweep and begins running it.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@every "+s.interval.String(), s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessions, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.Warn("session sweep failed", zap.Error(err))
	}

	windows := 0
	if s.limiter != nil {
		windows = s.limiter.Sweep()
	}

	if sessions > 0 || windows > 0 {
		s.logger.Debug("sweep completed",
			zap.Int("sessions_evicted", sessions),
			zap.Int("rate_limit_windows_removed", windows),
		)
	}
}
