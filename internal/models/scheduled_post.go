package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// ScheduledPost statuses. Transitions are pending -> processing -> completed/failed;
// completed and failed are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Source types for a scheduled post.
const (
	SourceTypeURL = "url"
	SourceTypeRSS = "rss"
)

// PostPayload carries the per-job generation settings, captured at scheduling
// time. It is copied into the job row and never aliased with caller state.
type PostPayload struct {
	AIModel         string   `json:"ai_model"`
	Language        string   `json:"language"`
	Tone            string   `json:"tone"`
	Categories      []string `json:"categories,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	AuthorID        int      `json:"author_id,omitempty"`
	InternalLinking bool     `json:"auto_internal_linking"`
	UseScrapedImage bool     `json:"use_scraped_images"`
	UseAIImage      bool     `json:"use_ai_images"`
	ImagePrompt     string   `json:"image_prompt,omitempty"`
	ImageStyle      string   `json:"image_style,omitempty"`
	LinkToSource    bool     `json:"link_to_source"`
}

// IsZero reports whether no payload fields were supplied.
func (p PostPayload) IsZero() bool {
	return p.AIModel == "" && p.Language == "" && p.Tone == "" &&
		len(p.Categories) == 0 && len(p.Tags) == 0 && p.AuthorID == 0 &&
		!p.InternalLinking && !p.UseScrapedImage && !p.UseAIImage &&
		p.ImagePrompt == "" && p.ImageStyle == "" && !p.LinkToSource
}

// Value serializes the payload for storage in a text column.
func (p PostPayload) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal post payload")
	}
	return string(data), nil
}

// Scan deserializes the payload from its stored form.
func (p *PostPayload) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = PostPayload{}
		return nil
	case []byte:
		return errors.Wrap(json.Unmarshal(v, p), "failed to unmarshal post payload")
	case string:
		return errors.Wrap(json.Unmarshal([]byte(v), p), "failed to unmarshal post payload")
	default:
		return errors.Newf("unsupported payload column type %T", src)
	}
}

// ScheduledPost is one candidate article's scrape-generate-publish unit of work.
type ScheduledPost struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	SourceURL     string      `gorm:"size:2048;not null;index" json:"source_url"`
	SourceType    string      `gorm:"size:20;not null;default:'url'" json:"source_type"`
	Payload       PostPayload `gorm:"type:text" json:"payload"`
	Status        string      `gorm:"size:20;not null;default:'pending';index:idx_scheduled_posts_due,priority:1" json:"status"`
	ScheduledTime time.Time   `gorm:"not null;index:idx_scheduled_posts_due,priority:2" json:"scheduled_time"`
	ClaimedAt     *time.Time  `json:"claimed_at,omitempty"`
	CompletedTime *time.Time  `json:"completed_time,omitempty"`
	Error         string      `gorm:"type:text" json:"error,omitempty"`
	PostID        *int64      `json:"post_id,omitempty"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// Terminal reports whether the post has reached a final status.
func (s *ScheduledPost) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}
