package models

import (
	"time"

	"gorm.io/datatypes"
)

// AIInteraction maps to the `ai_interactions` table. It is a generation request
// and its outcome.
type AIInteraction struct {
	ID           string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID       string         `gorm:"column:user_id;size:64;index:idx_interactions_user" json:"user_id"`
	AgentID      string         `gorm:"column:agent_id;size:36;index:idx_interactions_agent_created,priority:1" json:"agent_id"`
	AgentType    AgentType      `gorm:"column:agent_type;size:20" json:"agent_type"`
	Prompt       string         `gorm:"column:prompt;type:text" json:"prompt"`
	Context      datatypes.JSON `gorm:"column:context" json:"context,omitempty"`
	CampaignID   string         `gorm:"column:campaign_id;size:36;index:idx_interactions_campaign" json:"campaign_id,omitempty"`
	Platform     Platform       `gorm:"column:platform;size:20" json:"platform,omitempty"`
	Status       JobStatus      `gorm:"column:status;size:20;index:idx_interactions_status" json:"status"`
	Attempts     int            `gorm:"column:attempts;default:0" json:"attempts"`
	RetryCount   int            `gorm:"column:retry_count;default:0" json:"retry_count"`
	MaxRetries   *int           `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	NextRetryAt  *time.Time     `gorm:"column:next_retry_at" json:"next_retry_at,omitempty"`
	Response     string         `gorm:"column:response;type:text" json:"response,omitempty"`
	ModelUsed    string         `gorm:"column:model_used;size:50" json:"model_used,omitempty"`
	Temperature  float64        `gorm:"column:temperature" json:"temperature"`
	MaxTokens    int            `gorm:"column:max_tokens" json:"max_tokens"`
	TokensUsed   int            `gorm:"column:tokens_used;default:0" json:"tokens_used"`
	Cost         float64        `gorm:"column:cost;default:0" json:"cost"`
	ResponseTime float64        `gorm:"column:response_time;default:0" json:"response_time"`
	IsSuccessful bool           `gorm:"column:is_successful;default:false" json:"is_successful"`
	ErrorMessage string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	UserRating   *int           `gorm:"column:user_rating" json:"user_rating,omitempty"`
	Version      int            `gorm:"column:version;default:0" json:"version"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime;index:idx_interactions_agent_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CompletedAt  *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (AIInteraction) TableName() string {
	return "ai_interactions"
}

func (i *AIInteraction) State() JobState {
	return JobState{
		ID:          i.ID,
		Status:      i.Status,
		Attempts:    i.Attempts,
		RetryCount:  i.RetryCount,
		MaxRetries:  retryCeiling(i.MaxRetries),
		NextRetryAt: i.NextRetryAt,
		Version:     i.Version,
	}
}
