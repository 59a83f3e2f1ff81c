package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs reconciliation passes on a cron schedule.
//
// Common expressions:
//   - "0 3 * * *"   - daily at 3 AM
//   - "*/15 * * * *" - every 15 minutes
//   - "@every 1h"   - every hour
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	run     RunFunc
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a Scheduler for the given cron expression. The
// expression is validated eagerly.
func NewScheduler(spec string, run RunFunc, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	return &Scheduler{
		cron:   cron.New(),
		spec:   spec,
		run:    run,
		logger: logger.With("component", "runner.scheduler"),
	}, nil
}

// Start begins scheduled runs. Runs stop when ctx is cancelled or Stop
// is called. Run failures are logged; the schedule continues.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		s.logger.Info("running scheduled reconciliation", "schedule", s.spec)
		if err := s.run(ctx); err != nil {
			s.logger.Error("scheduled reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling reconciliation: %w", err)
	}

	s.cron.Start()
	s.running = true

	context.AfterFunc(ctx, s.Stop)
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
}
