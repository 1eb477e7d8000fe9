package models

import (
	"time"

	"gorm.io/datatypes"
)

// Campaign maps to the `social_media_campaigns` table.
type Campaign struct {
	ID               string                      `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID           string                      `gorm:"column:user_id;size:64;index:idx_campaigns_user" json:"user_id"`
	Name             string                      `gorm:"column:name;size:200" json:"name"`
	Description      string                      `gorm:"column:description;type:text" json:"description"`
	Platforms        datatypes.JSONSlice[string] `gorm:"column:platforms" json:"platforms"`
	ContentTemplates datatypes.JSONMap           `gorm:"column:content_templates" json:"content_templates"`
	UseAIContent     bool                        `gorm:"column:use_ai_content;default:false" json:"use_ai_content"`
	AITone           string                      `gorm:"column:ai_tone;size:50;default:professional" json:"ai_tone"`
	AIGuidelines     string                      `gorm:"column:ai_guidelines;type:text" json:"ai_guidelines"`
	Status           string                      `gorm:"column:status;size:20;default:DRAFT" json:"status"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "social_media_campaigns"
}

// Template returns the content template configured for a platform, if any.
func (c *Campaign) Template(p Platform) string {
	if c.ContentTemplates == nil {
		return ""
	}
	s, _ := c.ContentTemplates[string(p)].(string)
	return s
}
