package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Platform identifies the external network a post is published to.
type Platform string

const (
	PlatformTwitter   Platform = "TWITTER"
	PlatformLinkedIn  Platform = "LINKEDIN"
	PlatformFacebook  Platform = "FACEBOOK"
	PlatformInstagram Platform = "INSTAGRAM"
	PlatformTelegram  Platform = "TELEGRAM"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformLinkedIn, PlatformFacebook, PlatformInstagram, PlatformTelegram:
		return true
	}
	return false
}

// SocialPost maps to the `social_media_posts` table.
type SocialPost struct {
	ID                string                      `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID            string                      `gorm:"column:user_id;size:64;index:idx_posts_user" json:"user_id"`
	CampaignID        string                      `gorm:"column:campaign_id;size:36;index:idx_posts_campaign" json:"campaign_id,omitempty"`
	Platform          Platform                    `gorm:"column:platform;size:20;index:idx_posts_platform_status,priority:1" json:"platform"`
	PostType          string                      `gorm:"column:post_type;size:20;default:TEXT" json:"post_type"`
	Content           string                      `gorm:"column:content;type:text" json:"content"`
	MediaURLs         datatypes.JSONSlice[string] `gorm:"column:media_urls" json:"media_urls"`
	Status            JobStatus                   `gorm:"column:status;size:20;index:idx_posts_platform_status,priority:2;index:idx_posts_status_updated,priority:1" json:"status"`
	ScheduledTime     *time.Time                  `gorm:"column:scheduled_time" json:"scheduled_time,omitempty"`
	Attempts          int                         `gorm:"column:attempts;default:0" json:"attempts"`
	RetryCount        int                         `gorm:"column:retry_count;default:0" json:"retry_count"`
	MaxRetries        *int                        `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	NextRetryAt       *time.Time                  `gorm:"column:next_retry_at" json:"next_retry_at,omitempty"`
	PlatformPostID    string                      `gorm:"column:platform_post_id;size:100" json:"platform_post_id,omitempty"`
	PlatformURL       string                      `gorm:"column:platform_url;size:500" json:"platform_url,omitempty"`
	Metrics           datatypes.JSON              `gorm:"column:metrics" json:"metrics,omitempty"`
	LastMetricsUpdate *time.Time                  `gorm:"column:last_metrics_update" json:"last_metrics_update,omitempty"`
	ErrorMessage      string                      `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	IsAIGenerated     bool                        `gorm:"column:is_ai_generated;default:false" json:"is_ai_generated"`
	AIPrompt          string                      `gorm:"column:ai_prompt;type:text" json:"ai_prompt,omitempty"`
	AIAgentUsed       string                      `gorm:"column:ai_agent_used;size:100" json:"ai_agent_used,omitempty"`
	Version           int                         `gorm:"column:version;default:0" json:"version"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;autoUpdateTime;index:idx_posts_status_updated,priority:2" json:"updated_at"`
	PublishedAt       *time.Time                  `gorm:"column:published_at;index:idx_posts_published" json:"published_at,omitempty"`
}

func (SocialPost) TableName() string {
	return "social_media_posts"
}

func (p *SocialPost) State() JobState {
	return JobState{
		ID:          p.ID,
		Status:      p.Status,
		Attempts:    p.Attempts,
		RetryCount:  p.RetryCount,
		MaxRetries:  retryCeiling(p.MaxRetries),
		NextRetryAt: p.NextRetryAt,
		Version:     p.Version,
	}
}

// MetricValues decodes the stored metrics payload. Missing or malformed data
// yields an empty map.
func (p *SocialPost) MetricValues() map[string]float64 {
	out := map[string]float64{}
	if len(p.Metrics) == 0 {
		return out
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(p.Metrics, &raw); err != nil {
		return out
	}
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case json.Number:
			if f, err := n.Float64(); err == nil {
				out[k] = f
			}
		}
	}
	return out
}

// EngagementRate returns engagement over impressions as a percentage.
func (p *SocialPost) EngagementRate() float64 {
	return EngagementRate(p.Platform, p.MetricValues())
}

// EngagementRate computes the rate for a metrics snapshot of the given platform.
// Zero impressions yield zero.
func EngagementRate(platform Platform, m map[string]float64) float64 {
	impressions := m["impressions"]
	if impressions <= 0 {
		return 0
	}

	var engagement float64
	switch platform {
	case PlatformTwitter:
		engagement = m["likes"] + m["retweets"] + m["replies"] + m["quotes"]
	case PlatformLinkedIn:
		engagement = m["likes"] + m["comments"] + m["shares"]
	default:
		engagement = m["likes"] + m["comments"] + m["shares"] + m["reactions"]
	}
	return engagement / impressions * 100
}
