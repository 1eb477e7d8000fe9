package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"launchpad/internal/models"
)

// AgentRepository handles ai_agents table operations.
type AgentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func (r *AgentRepository) FindByID(ctx context.Context, id string) (*models.AIAgent, error) {
	var a models.AIAgent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AgentRepository) FindActiveByType(ctx context.Context, t models.AgentType) (*models.AIAgent, error) {
	var a models.AIAgent
	err := r.db.WithContext(ctx).Where("agent_type = ? AND status = ?", t, models.AgentActive).First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *AgentRepository) ListActive(ctx context.Context) ([]models.AIAgent, error) {
	var agents []models.AIAgent
	err := r.db.WithContext(ctx).Where("status = ?", models.AgentActive).Order("name ASC").Find(&agents).Error
	return agents, err
}

// RecordOutcome folds one finished interaction into the agent's counters under
// a row lock so concurrent completions do not lose updates.
func (r *AgentRepository) RecordOutcome(ctx context.Context, agentID string, success bool, responseTime float64, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.AIAgent
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", agentID).First(&a).Error
		if err != nil {
			return notFound(err)
		}
		a.RecordOutcome(success, responseTime)
		return tx.Model(&models.AIAgent{}).Where("id = ?", agentID).Updates(map[string]interface{}{
			"total_interactions":      a.TotalInteractions,
			"successful_interactions": a.SuccessfulInteractions,
			"success_rate":            a.SuccessRate,
			"average_response_time":   a.AverageResponseTime,
			"last_active":             at.UTC(),
		}).Error
	})
}

// UpdateWindowMetrics overwrites the rolling success rate and response time.
func (r *AgentRepository) UpdateWindowMetrics(ctx context.Context, agentID string, successRate, avgResponseTime float64) error {
	return r.db.WithContext(ctx).Model(&models.AIAgent{}).Where("id = ?", agentID).Updates(map[string]interface{}{
		"success_rate":          successRate,
		"average_response_time": avgResponseTime,
	}).Error
}
