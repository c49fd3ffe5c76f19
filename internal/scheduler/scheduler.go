package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/airline-rank-bot/internal/logger"
	"github.com/i474232898/airline-rank-bot/internal/standings"
)

// Updater runs a standings update. *standings.Service satisfies it.
type Updater interface {
	Update(ctx context.Context, trigger standings.Trigger) (standings.Snapshot, error)
}

// Scheduler triggers the standings update on a cron schedule in UTC.
type Scheduler struct {
	scheduler *gocron.Scheduler
	updater   Updater
	log       logger.Logger
	spec      string
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(spec string, timeout time.Duration, updater Updater, log logger.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		updater:   updater,
		log:       log,
		spec:      spec,
		timeout:   timeout,
	}
}

// Start registers the daily job and starts the underlying scheduler.
// The job runs in singleton mode so a slow run is never overlapped.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Cron(s.spec).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.Info("scheduler: started", "cron", s.spec, "next_run", s.NextRun())
	return nil
}

// NextRun returns the time of the next scheduled update.
func (s *Scheduler) NextRun() time.Time {
	_, next := s.scheduler.NextRun()
	return next
}

func (s *Scheduler) run() {
	s.log.Info("scheduler: running standings update")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.updater.Update(ctx, standings.TriggerScheduled)
	switch {
	case errors.Is(err, standings.ErrUpdateInProgress):
		s.log.Warn("scheduler: skipped, an update is already running")
	case err != nil:
		s.log.Error("scheduler: standings update failed", "err", err)
	default:
		s.log.Info("scheduler: completed standings update")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
