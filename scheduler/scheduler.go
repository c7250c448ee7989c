// Package scheduler runs the periodic background jobs, currently just the
// public view cache refresh.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// JobFunc represents a function that can be scheduled.
type JobFunc func(ctx context.Context) error

// Scheduler manages scheduled jobs.
type Scheduler struct {
	gocron gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new scheduler.
func New() (*Scheduler, error) {
	gocronScheduler, err := gocron.NewScheduler(gocron.WithLogger(newLogger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: gocronScheduler,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// AddIntervalJob schedules fn to run every interval. Jobs are singletons:
// a run that overlaps the next tick pushes it back instead of stacking.
func (s *Scheduler) AddIntervalJob(name string, interval time.Duration, fn JobFunc) error {
	_, err := s.gocron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := fn(s.ctx); err != nil {
				log.Error("job failed", "name", name, "error", err)
				return
			}
			log.Debug("job completed", "name", name)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", name, err)
	}

	log.Info("added job to scheduler", "name", name, "interval", interval)
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.gocron.Start()
	log.Info("job scheduler started")
}

// Stop stops the scheduler and cancels running jobs.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.gocron.Shutdown()
}
