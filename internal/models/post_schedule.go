package models

import "time"

// ScheduleStatus tracks a schedule entry through the due-schedule sweep.
type ScheduleStatus string

const (
	SchedulePending   ScheduleStatus = "PENDING"
	ScheduleClaimed   ScheduleStatus = "CLAIMED"
	ScheduleProcessed ScheduleStatus = "PROCESSED"
	ScheduleFailed    ScheduleStatus = "FAILED"
)

// PostSchedule maps to the `social_media_schedules` table. One entry per post.
type PostSchedule struct {
	ID            string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	PostID        string         `gorm:"column:post_id;size:36;uniqueIndex:uniq_schedules_post" json:"post_id"`
	ScheduledTime time.Time      `gorm:"column:scheduled_time;index:idx_schedules_due,priority:2" json:"scheduled_time"`
	Timezone      string         `gorm:"column:timezone;size:50;default:UTC" json:"timezone"`
	Status        ScheduleStatus `gorm:"column:status;size:20;index:idx_schedules_due,priority:1" json:"status"`
	IsProcessed   bool           `gorm:"column:is_processed;default:false" json:"is_processed"`
	ProcessedAt   *time.Time     `gorm:"column:processed_at;index:idx_schedules_processed" json:"processed_at,omitempty"`
	ClaimedAt     *time.Time     `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	RetryCount    int            `gorm:"column:retry_count;default:0" json:"retry_count"`
	MaxRetries    int            `gorm:"column:max_retries;default:3" json:"max_retries"`
	NextRetry     *time.Time     `gorm:"column:next_retry" json:"next_retry,omitempty"`
	ErrorMessage  string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PostSchedule) TableName() string {
	return "social_media_schedules"
}

// DueAt returns the moment the entry becomes eligible for the sweep.
func (s *PostSchedule) DueAt() time.Time {
	if s.NextRetry != nil && s.NextRetry.After(s.ScheduledTime) {
		return *s.NextRetry
	}
	return s.ScheduledTime
}
