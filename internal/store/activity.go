package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"github.com/newsmill/newsmill/internal/models"
)

// ActivityStore appends attempt outcomes to the activity log. Entries are
// write-once; there is no update path.
type ActivityStore struct {
	db *gorm.DB
}

func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// LogOption sets optional fields on a log entry.
type LogOption func(*models.ActivityLog)

// WithPostID attaches the created blog post id to the entry.
func WithPostID(postID int64) LogOption {
	return func(e *models.ActivityLog) {
		e.PostID = &postID
	}
}

// Record appends one entry.
func (a *ActivityStore) Record(action, sourceURL, status, message string, options ...LogOption) error {
	entry := &models.ActivityLog{
		Action:    action,
		SourceURL: sourceURL,
		Status:    status,
		Message:   message,
	}

	for _, option := range options {
		option(entry)
	}

	if err := a.db.Create(entry).Error; err != nil {
		return errors.Wrap(err, "failed to record activity log entry")
	}
	return nil
}

// List returns the most recent entries, optionally filtered by action.
func (a *ActivityStore) List(action string, limit int) ([]models.ActivityLog, error) {
	q := a.db.Order("created_at DESC").Limit(limit)
	if action != "" {
		q = q.Where("action = ?", action)
	}

	var entries []models.ActivityLog
	if err := q.Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list activity log entries")
	}
	return entries, nil
}

// RSSStats summarizes feed ingestion activity for the admin surface.
type RSSStats struct {
	TodayCount int64      `json:"today_count"`
	TotalCount int64      `json:"total_count"`
	LastFetch  *time.Time `json:"last_fetch,omitempty"`
}

// FeedStats computes ingestion counters from the activity log.
func (a *ActivityStore) FeedStats(now time.Time) (*RSSStats, error) {
	var stats RSSStats

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err := a.db.Model(&models.ActivityLog{}).
		Where("action = ? AND status = ? AND created_at >= ?", models.ActionRSS, models.LogStatusSuccess, todayStart).
		Count(&stats.TodayCount).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count today's feed runs")
	}

	err = a.db.Model(&models.ActivityLog{}).
		Where("action = ? AND status = ?", models.ActionRSS, models.LogStatusSuccess).
		Count(&stats.TotalCount).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to count feed runs")
	}

	var last models.ActivityLog
	err = a.db.Where("action = ?", models.ActionRSS).Order("created_at DESC").First(&last).Error
	if err == nil {
		stats.LastFetch = &last.CreatedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "failed to load last feed run")
	}

	return &stats, nil
}
