// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/erazemk/premik/internal/loan"
)

// DefaultSweepSchedule runs the overdue sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// Sweeper is the job the scheduler runs.
type Sweeper interface {
	SweepOverdue(ctx context.Context) (*loan.SweepResult, error)
}

// Scheduler runs the overdue sweep on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
}

// New creates a scheduler. Skipped runs are dropped rather than queued, so
// a slow sweep never overlaps with the next one.
func New(sweeper Sweeper) *Scheduler {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return &Scheduler{cron: c, sweeper: sweeper, timeout: 2 * time.Minute}
}

// Start schedules the sweep and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return fmt.Errorf("scheduling overdue sweep %q: %w", schedule, err)
	}

	slog.Info("starting scheduler", "sweep", schedule)
	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	slog.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.sweeper.SweepOverdue(ctx); err != nil {
		slog.Error("overdue sweep failed", "error", err)
	}
}
