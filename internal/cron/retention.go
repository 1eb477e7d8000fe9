package cron

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// RetentionResult reports how many rows each cleanup removed.
type RetentionResult struct {
	FailedPosts      int64 `json:"failed_posts_cleaned"`
	Interactions     int64 `json:"interactions_cleaned"`
	ProcessedEntries int64 `json:"schedules_cleaned"`
}

// RunRetention deletes expired rows. Each cleanup runs even when another one
// failed; the errors are combined.
func (s *Scheduler) RunRetention(ctx context.Context) (RetentionResult, error) {
	var (
		res  RetentionResult
		errs error
		err  error
	)
	now := s.now()
	rc := s.cfg.Retention

	if res.FailedPosts, err = s.repos.Posts.DeleteFailedOlderThan(ctx, now.Add(-rc.FailedPosts)); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "delete failed posts"))
	}
	if res.Interactions, err = s.repos.Interactions.DeleteOlderThan(ctx, now.Add(-rc.Interactions)); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "delete interactions"))
	}
	if res.ProcessedEntries, err = s.repos.Schedules.DeleteProcessedOlderThan(ctx, now.Add(-rc.ProcessedRuns)); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "delete processed schedules"))
	}

	if errs != nil {
		s.logger.Error("Retention cleanup incomplete", zap.Error(errs))
	}
	s.logger.Info("Retention cleanup finished",
		zap.Int64("failed_posts", res.FailedPosts),
		zap.Int64("interactions", res.Interactions),
		zap.Int64("schedules", res.ProcessedEntries))
	return res, errs
}
