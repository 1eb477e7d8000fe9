package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"launchpad/internal/models"
)

// PostRepository handles social_media_posts table operations.
type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, p *models.SocialPost) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.StatusDraft
	}
	if p.MaxRetries == nil {
		p.MaxRetries = models.Retries(models.DefaultMaxRetries)
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.SocialPost, error) {
	var p models.SocialPost
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// PostFilter narrows List results; zero fields are ignored.
type PostFilter struct {
	UserID     string
	CampaignID string
	Platform   models.Platform
	Status     models.JobStatus
}

func (r *PostRepository) List(ctx context.Context, f PostFilter, page, limit int) ([]models.SocialPost, int64, error) {
	page, limit = pageBounds(page, limit)
	q := r.db.WithContext(ctx).Model(&models.SocialPost{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.CampaignID != "" {
		q = q.Where("campaign_id = ?", f.CampaignID)
	}
	if f.Platform != "" {
		q = q.Where("platform = ?", f.Platform)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []models.SocialPost
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&posts).Error
	return posts, total, err
}

// MarkScheduled moves a draft to SCHEDULED for the given time.
func (r *PostRepository) MarkScheduled(ctx context.Context, p *models.SocialPost, at time.Time) error {
	at = at.UTC()
	st := p.State()
	if err := transition(ctx, r.db, &models.SocialPost{}, st, models.StatusScheduled, map[string]interface{}{
		"scheduled_time": at,
	}); err != nil {
		return err
	}
	p.Status = models.StatusScheduled
	p.ScheduledTime = &at
	p.Version++
	return nil
}

// BeginAttempt records the start of an attempt before any external call.
func (r *PostRepository) BeginAttempt(ctx context.Context, st models.JobState) (models.JobState, error) {
	return beginAttempt(ctx, r.db, &models.SocialPost{}, st)
}

// PublishResult carries the outcome written on success.
type PublishResult struct {
	PlatformPostID string
	PlatformURL    string
	PublishedAt    time.Time
}

func (r *PostRepository) MarkPublished(ctx context.Context, st models.JobState, res PublishResult) error {
	if res.PlatformPostID == "" {
		return errors.Newf("post %s: published without an external id", st.ID)
	}
	return transition(ctx, r.db, &models.SocialPost{}, st, models.StatusPublished, map[string]interface{}{
		"platform_post_id": res.PlatformPostID,
		"platform_url":     res.PlatformURL,
		"published_at":     res.PublishedAt.UTC(),
		"error_message":    "",
		"next_retry_at":    nil,
	})
}

func (r *PostRepository) MarkRetry(ctx context.Context, st models.JobState, nextRetryAt time.Time, errMsg string) (models.JobState, error) {
	return markRetry(ctx, r.db, &models.SocialPost{}, st, nextRetryAt, errMsg)
}

func (r *PostRepository) MarkFailed(ctx context.Context, st models.JobState, errMsg string) error {
	return markFailed(ctx, r.db, &models.SocialPost{}, st, errMsg)
}

// FailByID fails a post regardless of version, as long as it is not terminal.
func (r *PostRepository) FailByID(ctx context.Context, id, errMsg string) error {
	if errMsg == "" {
		errMsg = "unknown error"
	}
	res := r.db.WithContext(ctx).Model(&models.SocialPost{}).
		Where("id = ? AND status IN ?", id, models.SourceStatuses(models.StatusFailed)).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": TrimError(errMsg),
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.Mark(errors.Newf("post %s is already terminal or missing", id), ErrConflict)
	}
	return nil
}

// ListForMetricsRefresh returns published posts newer than since whose metrics
// were never fetched or were fetched before staleBefore.
func (r *PostRepository) ListForMetricsRefresh(ctx context.Context, since, staleBefore time.Time, limit int) ([]models.SocialPost, error) {
	var posts []models.SocialPost
	q := r.db.WithContext(ctx).
		Where("status = ? AND published_at >= ? AND platform_post_id <> ''", models.StatusPublished, since.UTC()).
		Where("last_metrics_update IS NULL OR last_metrics_update < ?", staleBefore.UTC()).
		Order("published_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&posts).Error
	return posts, err
}

func (r *PostRepository) UpdateMetrics(ctx context.Context, id string, metrics datatypes.JSON, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.SocialPost{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"metrics":             metrics,
			"last_metrics_update": at.UTC(),
		}).Error
}

// DeleteFailedOlderThan removes FAILED posts created strictly before cutoff,
// together with their schedule entries.
func (r *PostRepository) DeleteFailedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.SocialPost{}).Select("id").
			Where("status = ? AND created_at < ?", models.StatusFailed, cutoff.UTC())
		if err := tx.Where("post_id IN (?)", ids).Delete(&models.PostSchedule{}).Error; err != nil {
			return err
		}
		res := tx.Where("status = ? AND created_at < ?", models.StatusFailed, cutoff.UTC()).Delete(&models.SocialPost{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
