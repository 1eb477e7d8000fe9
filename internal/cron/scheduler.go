package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"launchpad/internal/adapter"
	"launchpad/internal/config"
	"launchpad/internal/queue"
	"launchpad/internal/tasks"
)

// Scheduler manages all periodic sweepers.
type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	logger   *zap.Logger
	repos    *tasks.Repos
	queue    queue.Queue
	registry *adapter.Registry
	now      func() time.Time
}

// New creates a new cron scheduler.
func New(cfg *config.Config, repos *tasks.Repos, q queue.Queue, registry *adapter.Registry, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		cfg:      cfg,
		logger:   logger,
		repos:    repos,
		queue:    q,
		registry: registry,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting cron scheduler...")

	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		// Due schedules - every minute
		{"0 * * * * *", "process due schedules", func(ctx context.Context) { s.ProcessDueSchedules(ctx) }},
		// Queue visibility reaper - every 30 seconds
		{"*/30 * * * * *", "reap queue", s.ReapQueue},
		// Post metrics - every 15 minutes
		{"0 */15 * * * *", "refresh post metrics", func(ctx context.Context) { s.RefreshPostMetrics(ctx) }},
		// Agent metrics - every hour
		{"0 0 * * * *", "sync agent metrics", func(ctx context.Context) { s.SyncAgentMetrics(ctx) }},
		// Retention - daily at 03:30
		{"0 30 3 * * *", "retention", func(ctx context.Context) { _, _ = s.RunRetention(ctx) }},
	}

	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() {
			defer s.recoverFromPanic(j.name)
			s.logger.Debug("Running: " + j.name)
			j.run(ctx)
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started")
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ReapQueue returns in-flight tasks past their visibility timeout to the queue.
func (s *Scheduler) ReapQueue(ctx context.Context) {
	n, err := s.queue.ReapExpired(ctx)
	if err != nil {
		s.logger.Error("Failed to reap expired tasks", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("Returned expired in-flight tasks to the queue", zap.Int("count", n))
	}
}

func (s *Scheduler) recoverFromPanic(jobName string) {
	if r := recover(); r != nil {
		s.logger.Error("Cron job panicked", zap.String("job", jobName), zap.Any("error", r))
	}
}
