package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"launchpad/internal/models"
)

// transition applies a compare-and-swap update to a job record row. The row
// must still carry the expected version and one of the allowed source
// statuses; otherwise ErrConflict is returned.
func transition(ctx context.Context, db *gorm.DB, model interface{}, st models.JobState, to models.JobStatus, updates map[string]interface{}) error {
	sources := models.SourceStatuses(to)
	if len(sources) == 0 {
		return errors.Newf("no transition into %s", to)
	}
	if !models.CanTransition(st.Status, to) {
		return errors.Mark(errors.Newf("illegal transition %s -> %s for %s", st.Status, to, st.ID), ErrConflict)
	}

	updates["status"] = to
	updates["version"] = gorm.Expr("version + 1")

	res := db.WithContext(ctx).Model(model).
		Where("id = ? AND version = ? AND status IN ?", st.ID, st.Version, sources).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update %s", st.ID)
	}
	if res.RowsAffected == 0 {
		return errors.Mark(errors.Newf("job %s moved past version %d", st.ID, st.Version), ErrConflict)
	}
	return nil
}

func beginAttempt(ctx context.Context, db *gorm.DB, model interface{}, st models.JobState) (models.JobState, error) {
	err := transition(ctx, db, model, st, models.StatusInProgress, map[string]interface{}{
		"attempts":      gorm.Expr("attempts + 1"),
		"next_retry_at": nil,
	})
	if err != nil {
		return st, err
	}
	st.Status = models.StatusInProgress
	st.Attempts++
	st.NextRetryAt = nil
	st.Version++
	return st, nil
}

func markRetry(ctx context.Context, db *gorm.DB, model interface{}, st models.JobState, nextRetryAt time.Time, errMsg string) (models.JobState, error) {
	if !st.RetriesLeft() {
		return st, errors.Newf("job %s has no retries left (%d/%d)", st.ID, st.RetryCount, st.MaxRetries)
	}
	next := nextRetryAt.UTC()
	err := transition(ctx, db, model, st, models.StatusInProgress, map[string]interface{}{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"next_retry_at": next,
		"error_message": TrimError(errMsg),
	})
	if err != nil {
		return st, err
	}
	st.RetryCount++
	st.NextRetryAt = &next
	st.Version++
	return st, nil
}

func markFailed(ctx context.Context, db *gorm.DB, model interface{}, st models.JobState, errMsg string) error {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	return transition(ctx, db, model, st, models.StatusFailed, map[string]interface{}{
		"error_message": TrimError(errMsg),
		"next_retry_at": nil,
	})
}

func pageBounds(page, limit int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if page <= 0 {
		page = 1
	}
	return page, limit
}
