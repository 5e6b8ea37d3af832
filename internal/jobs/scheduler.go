// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/KhamariThompson/100rebuild/internal/progress"
)

// Refresher is the set of engines to refresh.
type Refresher interface {
	Each(fn func(userID string, e *progress.Engine))
	EvictIdle(idle time.Duration) int
}

// Scheduler force-refreshes every active engine so day-based streak windows
// roll over without user interaction. Engines idle for longer than idleTTL are
// dropped before each run.
type Scheduler struct {
	cron    *cron.Cron
	engines Refresher
	idleTTL time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a scheduler evaluating its spec in loc. A zero idleTTL
// keeps every engine.
func NewScheduler(engines Refresher, loc *time.Location, idleTTL time.Duration, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		engines: engines,
		idleTTL: idleTTL,
		logger:  logger,
	}
}

// Start registers the refresh job on spec and starts the cron loop.
// An empty spec disables scheduled refreshes.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		s.logger.Info("scheduled refresh disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(spec, func() { s.RefreshAll(ctx) }); err != nil {
		return fmt.Errorf("schedule refresh %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("refresh scheduler started", "schedule", spec)
	return nil
}

// RefreshAll evicts idle engines, then starts a forced load on every remaining
// one. It does not wait for the loads.
func (s *Scheduler) RefreshAll(ctx context.Context) int {
	if evicted := s.engines.EvictIdle(s.idleTTL); evicted > 0 {
		s.logger.Info("evicted idle engines", "engines", evicted)
	}

	n := 0
	s.engines.Each(func(userID string, e *progress.Engine) {
		attempt := e.Load(ctx, true)
		s.logger.Debug("scheduled refresh started", "user_id", userID, "attempt_id", attempt.ID())
		n++
	})
	s.logger.Info("scheduled refresh", "engines", n)
	return n
}

// Stop halts the scheduler and waits for a running job to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("refresh scheduler stopped")
}
