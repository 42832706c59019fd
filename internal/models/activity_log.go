package models

import "time"

// Activity log statuses.
const (
	LogStatusSuccess = "success"
	LogStatusError   = "error"
	LogStatusWarning = "warning"
)

// Activity log actions.
const (
	ActionSchedule       = "schedule"
	ActionDeleteSchedule = "delete_schedule"
	ActionProcess        = "process_scheduled"
	ActionPublish        = "publish"
	ActionRSS            = "rss"
	ActionReclaim        = "reclaim"
)

// ActivityLog is an append-only record of one attempt outcome. Rows are never
// mutated after creation.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"size:50;not null;index" json:"action"`
	SourceURL string    `gorm:"size:2048" json:"source_url"`
	PostID    *int64    `gorm:"index" json:"post_id,omitempty"`
	Status    string    `gorm:"size:20;not null;index" json:"status"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
