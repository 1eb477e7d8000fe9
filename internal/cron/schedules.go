package cron

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"launchpad/internal/models"
	"launchpad/internal/repository"
	"launchpad/internal/tasks"
)

const dueBatchSize = 200

// SweepResult counts what one due-schedule scan did.
type SweepResult struct {
	Recovered int64
	Submitted int
	Retried   int
	Failed    int
}

// ProcessDueSchedules submits every due schedule entry exactly once. Entries
// are claimed one by one, so concurrent sweeps never submit the same entry.
func (s *Scheduler) ProcessDueSchedules(ctx context.Context) SweepResult {
	var res SweepResult
	now := s.now()

	if s.cfg.Retry.StaleClaimAfter > 0 {
		reopened, closed, err := s.repos.Schedules.RecoverStaleClaims(ctx, now.Add(-s.cfg.Retry.StaleClaimAfter), now)
		if err != nil {
			s.logger.Error("Failed to recover stale schedule claims", zap.Error(err))
		}
		res.Recovered = reopened + closed
	}

	due, err := s.repos.Schedules.FindDue(ctx, now, dueBatchSize)
	if err != nil {
		s.logger.Error("Failed to load due schedules", zap.Error(err))
		return res
	}

	for i := range due {
		entry := &due[i]
		ok, err := s.repos.Schedules.Claim(ctx, entry.ID, now)
		if err != nil {
			s.logger.Error("Failed to claim schedule", zap.String("schedule_id", entry.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		switch err := s.submitScheduled(ctx, entry, now); {
		case err == nil:
			res.Submitted++
		case s.retrySchedule(ctx, entry, now, err):
			res.Retried++
		default:
			res.Failed++
		}
	}

	s.logger.Info("Processed scheduled posts",
		zap.Int("submitted", res.Submitted),
		zap.Int("retried", res.Retried),
		zap.Int("failed", res.Failed),
		zap.Int64("recovered", res.Recovered))
	return res
}

func (s *Scheduler) submitScheduled(ctx context.Context, entry *models.PostSchedule, now time.Time) error {
	if _, err := s.queue.Enqueue(ctx, tasks.TaskPublishPost, entry.PostID); err != nil {
		return errors.Wrap(err, "enqueue publish task")
	}
	if err := s.markProcessed(ctx, entry.ID, now); err != nil {
		// The task is out. Stale-claim recovery closes the entry once the
		// post has been picked up.
		s.logger.Error("Failed to mark schedule processed", zap.String("schedule_id", entry.ID), zap.Error(err))
	}
	return nil
}

const (
	markProcessedAttempts = 3
	markProcessedBackoff  = 50 * time.Millisecond
)

// markProcessed records a submitted entry, retrying short database hiccups so
// the entry is not reclaimed and submitted twice.
func (s *Scheduler) markProcessed(ctx context.Context, id string, now time.Time) error {
	var err error
	for attempt := 1; attempt <= markProcessedAttempts; attempt++ {
		err = s.repos.Schedules.MarkProcessed(ctx, id, now)
		if err == nil || errors.Is(err, repository.ErrConflict) {
			return err
		}
		if attempt == markProcessedAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.CombineErrors(err, ctx.Err())
		case <-time.After(time.Duration(attempt) * markProcessedBackoff):
		}
	}
	return errors.Wrapf(err, "mark schedule processed after %d attempts", markProcessedAttempts)
}

// retrySchedule releases the entry for another submission attempt, or fails
// both the entry and its post once retries are exhausted. It reports whether
// a retry was scheduled.
func (s *Scheduler) retrySchedule(ctx context.Context, entry *models.PostSchedule, now time.Time, cause error) bool {
	log := s.logger.With(zap.String("schedule_id", entry.ID), zap.String("post_id", entry.PostID))
	log.Error("Failed to process scheduled post", zap.Error(cause))

	maxRetries := entry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.cfg.Retry.ScheduleMaxRetries
	}

	if entry.RetryCount < maxRetries {
		n := entry.RetryCount + 1
		next := now.Add(time.Duration(n) * s.cfg.Retry.ScheduleRetryStep)
		if err := s.repos.Schedules.ReleaseForRetry(ctx, entry.ID, next, cause.Error()); err != nil {
			log.Error("Failed to release schedule for retry", zap.Error(err))
		}
		return true
	}

	if err := s.repos.Schedules.MarkFailed(ctx, entry.ID, now, cause.Error()); err != nil {
		log.Error("Failed to mark schedule failed", zap.Error(err))
	}
	err := s.repos.Posts.FailByID(ctx, entry.PostID, "Max retries exceeded: "+cause.Error())
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		log.Error("Failed to mark post failed", zap.Error(err))
	}
	return false
}
