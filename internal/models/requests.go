package models

import "time"

// APIResponse is the standard response envelope for every API endpoint.
type APIResponse struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Obj    interface{} `json:"obj"`
}

// PaginatedResponse wraps list results with pagination info.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// --- Social post payloads ---

type CreatePostRequest struct {
	UserID        string     `json:"user_id"`
	CampaignID    string     `json:"campaign_id"`
	Platform      Platform   `json:"platform"`
	PostType      string     `json:"post_type"`
	Content       string     `json:"content"`
	MediaURLs     []string   `json:"media_urls"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	Timezone      string     `json:"timezone"`
	MaxRetries    *int       `json:"max_retries"`
	PublishNow    bool       `json:"publish_now"`
}

type BulkScheduleRequest struct {
	UserID string              `json:"user_id"`
	Posts  []CreatePostRequest `json:"posts"`
}

type PostsListRequest struct {
	UserID     string    `query:"user_id"`
	CampaignID string    `query:"campaign_id"`
	Platform   Platform  `query:"platform"`
	Status     JobStatus `query:"status"`
	Page       int       `query:"page"`
	Limit      int       `query:"limit"`
}

// --- AI interaction payloads ---

type CreateInteractionRequest struct {
	UserID     string                 `json:"user_id"`
	AgentType  AgentType              `json:"agent_type"`
	Prompt     string                 `json:"prompt"`
	Context    map[string]interface{} `json:"context"`
	CampaignID string                 `json:"campaign_id"`
	Platform   Platform               `json:"platform"`
	MaxRetries *int                   `json:"max_retries"`
}

type BatchGenerateRequest struct {
	UserID    string    `json:"user_id"`
	AgentType AgentType `json:"agent_type"`
	Prompts   []string  `json:"prompts"`
}

type LaunchGuidanceRequest struct {
	UserID   string                 `json:"user_id"`
	Step     string                 `json:"step"`
	UserData map[string]interface{} `json:"user_data"`
}

type ModerationRequest struct {
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
	Content   string `json:"content"`
}

type QuestionRequest struct {
	UserID     string                 `json:"user_id"`
	QuestionID string                 `json:"question_id"`
	Question   string                 `json:"question"`
	Context    map[string]interface{} `json:"context"`
}

// --- Campaign payloads ---

type CreateCampaignRequest struct {
	UserID           string            `json:"user_id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Platforms        []string          `json:"platforms"`
	ContentTemplates map[string]string `json:"content_templates"`
	UseAIContent     bool              `json:"use_ai_content"`
	AITone           string            `json:"ai_tone"`
	AIGuidelines     string            `json:"ai_guidelines"`
}
