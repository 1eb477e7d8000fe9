package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"launchpad/internal/models"
)

// ScheduleRepository handles social_media_schedules table operations.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *models.PostSchedule) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = models.SchedulePending
	}
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = models.DefaultMaxRetries
	}
	s.ScheduledTime = s.ScheduledTime.UTC()
	return r.db.WithContext(ctx).Create(s).Error
}

// SchedulePost creates the schedule entry and moves the post to SCHEDULED in
// one transaction.
func (r *ScheduleRepository) SchedulePost(ctx context.Context, p *models.SocialPost, s *models.PostSchedule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s.PostID = p.ID
		if err := NewScheduleRepository(tx).Create(ctx, s); err != nil {
			return err
		}
		return NewPostRepository(tx).MarkScheduled(ctx, p, s.ScheduledTime)
	})
}

func (r *ScheduleRepository) FindByPostID(ctx context.Context, postID string) (*models.PostSchedule, error) {
	var s models.PostSchedule
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// FindDue lists unprocessed pending entries whose time, and retry time if set,
// has passed.
func (r *ScheduleRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]models.PostSchedule, error) {
	now = now.UTC()
	var entries []models.PostSchedule
	q := r.db.WithContext(ctx).
		Where("status = ? AND is_processed = ? AND scheduled_time <= ?", models.SchedulePending, false, now).
		Where("next_retry IS NULL OR next_retry <= ?", now).
		Order("scheduled_time ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}

// Claim flips a pending entry to CLAIMED. Only one caller ever gets true for a
// given pending entry.
func (r *ScheduleRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.PostSchedule{}).
		Where("id = ? AND status = ? AND is_processed = ?", id, models.SchedulePending, false).
		Updates(map[string]interface{}{
			"status":     models.ScheduleClaimed,
			"claimed_at": now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ScheduleRepository) MarkProcessed(ctx context.Context, id string, now time.Time) error {
	return r.finish(ctx, id, models.ScheduleProcessed, now, "")
}

// MarkFailed closes the entry for good after its submission retries ran out.
func (r *ScheduleRepository) MarkFailed(ctx context.Context, id string, now time.Time, errMsg string) error {
	return r.finish(ctx, id, models.ScheduleFailed, now, errMsg)
}

func (r *ScheduleRepository) finish(ctx context.Context, id string, status models.ScheduleStatus, now time.Time, errMsg string) error {
	res := r.db.WithContext(ctx).Model(&models.PostSchedule{}).
		Where("id = ? AND status = ?", id, models.ScheduleClaimed).
		Updates(map[string]interface{}{
			"status":        status,
			"is_processed":  true,
			"processed_at":  now.UTC(),
			"error_message": TrimError(errMsg),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// ReleaseForRetry returns a claimed entry to PENDING with a bumped retry count.
func (r *ScheduleRepository) ReleaseForRetry(ctx context.Context, id string, nextRetry time.Time, errMsg string) error {
	res := r.db.WithContext(ctx).Model(&models.PostSchedule{}).
		Where("id = ? AND status = ?", id, models.ScheduleClaimed).
		Updates(map[string]interface{}{
			"status":        models.SchedulePending,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"next_retry":    nextRetry.UTC(),
			"claimed_at":    nil,
			"error_message": TrimError(errMsg),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// RecoverStaleClaims settles entries claimed before the cutoff. A claim only
// stays open that long when its sweeper died mid-submission or could not
// record the outcome. Entries whose post has already been picked up by a
// worker are closed as PROCESSED; the rest go back to PENDING.
func (r *ScheduleRepository) RecoverStaleClaims(ctx context.Context, claimedBefore, now time.Time) (reopened, closed int64, err error) {
	cutoff := claimedBefore.UTC()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		started := tx.Model(&models.SocialPost{}).Select("id").
			Where("status IN ?", []models.JobStatus{models.StatusInProgress, models.StatusPublished, models.StatusFailed})

		res := tx.Model(&models.PostSchedule{}).
			Where("status = ? AND claimed_at < ? AND post_id IN (?)", models.ScheduleClaimed, cutoff, started).
			Updates(map[string]interface{}{
				"status":       models.ScheduleProcessed,
				"is_processed": true,
				"processed_at": now.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		closed = res.RowsAffected

		res = tx.Model(&models.PostSchedule{}).
			Where("status = ? AND claimed_at < ?", models.ScheduleClaimed, cutoff).
			Updates(map[string]interface{}{
				"status":     models.SchedulePending,
				"claimed_at": nil,
			})
		if res.Error != nil {
			return res.Error
		}
		reopened = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return reopened, closed, nil
}

// DeleteProcessedOlderThan removes entries processed strictly before cutoff.
func (r *ScheduleRepository) DeleteProcessedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("is_processed = ? AND processed_at < ?", true, cutoff.UTC()).
		Delete(&models.PostSchedule{})
	return res.RowsAffected, res.Error
}
