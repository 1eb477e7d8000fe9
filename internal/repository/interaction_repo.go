package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"launchpad/internal/models"
)

// InteractionRepository handles ai_interactions table operations.
type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(ctx context.Context, i *models.AIInteraction) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = models.StatusScheduled
	}
	if i.MaxRetries == nil {
		i.MaxRetries = models.Retries(models.DefaultMaxRetries)
	}
	return r.db.WithContext(ctx).Create(i).Error
}

// CreateBatch inserts several interactions in one transaction.
func (r *InteractionRepository) CreateBatch(ctx context.Context, items []*models.AIInteraction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewInteractionRepository(tx)
		for _, i := range items {
			if err := repo.Create(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *InteractionRepository) FindByID(ctx context.Context, id string) (*models.AIInteraction, error) {
	var i models.AIInteraction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&i).Error; err != nil {
		return nil, notFound(err)
	}
	return &i, nil
}

func (r *InteractionRepository) BeginAttempt(ctx context.Context, st models.JobState) (models.JobState, error) {
	return beginAttempt(ctx, r.db, &models.AIInteraction{}, st)
}

// GenerationResult carries the fields written when generation succeeds.
type GenerationResult struct {
	Response     string
	ModelUsed    string
	TokensUsed   int
	Cost         float64
	ResponseTime float64
	CompletedAt  time.Time
}

func (r *InteractionRepository) MarkCompleted(ctx context.Context, st models.JobState, res GenerationResult) error {
	return transition(ctx, r.db, &models.AIInteraction{}, st, models.StatusPublished, map[string]interface{}{
		"response":      res.Response,
		"model_used":    res.ModelUsed,
		"tokens_used":   res.TokensUsed,
		"cost":          res.Cost,
		"response_time": res.ResponseTime,
		"is_successful": true,
		"error_message": "",
		"completed_at":  res.CompletedAt.UTC(),
		"next_retry_at": nil,
	})
}

func (r *InteractionRepository) MarkRetry(ctx context.Context, st models.JobState, nextRetryAt time.Time, errMsg string) (models.JobState, error) {
	return markRetry(ctx, r.db, &models.AIInteraction{}, st, nextRetryAt, errMsg)
}

func (r *InteractionRepository) MarkFailed(ctx context.Context, st models.JobState, errMsg string) error {
	return markFailed(ctx, r.db, &models.AIInteraction{}, st, errMsg)
}

// AgentWindowStats summarises terminal interactions of one agent.
type AgentWindowStats struct {
	Total           int64
	Successful      int64
	AvgResponseTime float64
}

// StatsSince aggregates terminal interactions of an agent created at or after since.
func (r *InteractionRepository) StatsSince(ctx context.Context, agentID string, since time.Time) (AgentWindowStats, error) {
	var stats AgentWindowStats
	base := r.db.WithContext(ctx).Model(&models.AIInteraction{}).
		Where("agent_id = ? AND created_at >= ? AND status IN ?", agentID, since.UTC(),
			[]models.JobStatus{models.StatusPublished, models.StatusFailed})

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := base.Session(&gorm.Session{}).Where("is_successful = ?", true).Count(&stats.Successful).Error; err != nil {
		return stats, err
	}

	var avg struct{ Avg *float64 }
	err := base.Session(&gorm.Session{}).Where("is_successful = ?", true).
		Select("AVG(response_time) AS avg").Scan(&avg).Error
	if err != nil {
		return stats, err
	}
	if avg.Avg != nil {
		stats.AvgResponseTime = *avg.Avg
	}
	return stats, nil
}

// DeleteOlderThan removes interactions created strictly before cutoff, in any state.
func (r *InteractionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.AIInteraction{})
	return res.RowsAffected, res.Error
}
