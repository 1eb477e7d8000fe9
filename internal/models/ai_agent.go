package models

import "time"

type AgentType string

const (
	AgentMarketing   AgentType = "MARKETING"
	AgentCommunity   AgentType = "COMMUNITY"
	AgentAnalytics   AgentType = "ANALYTICS"
	AgentLaunchGuide AgentType = "LAUNCH_GUIDE"
)

func (t AgentType) Valid() bool {
	switch t {
	case AgentMarketing, AgentCommunity, AgentAnalytics, AgentLaunchGuide:
		return true
	}
	return false
}

const (
	AgentActive   = "ACTIVE"
	AgentInactive = "INACTIVE"
)

// AIAgent maps to the `ai_agents` table.
type AIAgent struct {
	ID                     string     `gorm:"column:id;primaryKey;size:36" json:"id"`
	Name                   string     `gorm:"column:name;size:100" json:"name"`
	AgentType              AgentType  `gorm:"column:agent_type;size:20;uniqueIndex:uniq_agents_type" json:"agent_type"`
	Description            string     `gorm:"column:description;type:text" json:"description"`
	SystemPrompt           string     `gorm:"column:system_prompt;type:text" json:"system_prompt"`
	Model                  string     `gorm:"column:model;size:50" json:"model"`
	Temperature            float64    `gorm:"column:temperature;default:0.7" json:"temperature"`
	MaxTokens              int        `gorm:"column:max_tokens;default:1000" json:"max_tokens"`
	Status                 string     `gorm:"column:status;size:20;default:ACTIVE" json:"status"`
	TotalInteractions      int        `gorm:"column:total_interactions;default:0" json:"total_interactions"`
	SuccessfulInteractions int        `gorm:"column:successful_interactions;default:0" json:"successful_interactions"`
	SuccessRate            float64    `gorm:"column:success_rate;default:0" json:"success_rate"`
	AverageResponseTime    float64    `gorm:"column:average_response_time;default:0" json:"average_response_time"`
	LastActive             *time.Time `gorm:"column:last_active" json:"last_active,omitempty"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (AIAgent) TableName() string {
	return "ai_agents"
}

// RecordOutcome folds one finished interaction into the running counters.
// The average response time only moves on success.
func (a *AIAgent) RecordOutcome(success bool, responseTime float64) {
	a.TotalInteractions++
	n := float64(a.TotalInteractions)
	if success {
		a.SuccessfulInteractions++
		a.AverageResponseTime = (a.AverageResponseTime*(n-1) + responseTime) / n
	}
	a.SuccessRate = SuccessRate(a.SuccessfulInteractions, a.TotalInteractions)
}

// SuccessRate returns successes over total as a percentage; zero total yields zero.
func SuccessRate(successes, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(successes) / float64(total) * 100
}
