package store

import (
	"net/url"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"github.com/newsmill/newsmill/internal/models"
)

// JobStore is the system of record for scheduled posts. All status transitions
// go through its conditional updates; nothing else mutates the rows.
type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

// ValidateSourceURL checks that a candidate URL is an absolute http(s) URL.
func ValidateSourceURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return &models.ValidationError{Field: "source_url", Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &models.ValidationError{Field: "source_url", Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &models.ValidationError{Field: "source_url", Reason: "missing host"}
	}
	return nil
}

// Enqueue persists a new pending post and returns its id.
func (s *JobStore) Enqueue(post *models.ScheduledPost) (uint, error) {
	if err := ValidateSourceURL(post.SourceURL); err != nil {
		return 0, err
	}
	if post.ScheduledTime.IsZero() {
		return 0, &models.ValidationError{Field: "scheduled_time", Reason: "must be set"}
	}
	if post.SourceType == "" {
		post.SourceType = models.SourceTypeURL
	}
	post.Status = models.StatusPending

	if err := s.db.Create(post).Error; err != nil {
		return 0, errors.Wrap(err, "failed to enqueue scheduled post")
	}
	return post.ID, nil
}

// claimDueSQL transitions a bounded batch of due pending rows to processing in
// a single statement. SKIP LOCKED keeps two overlapping ticks from ever
// claiming the same row.
const claimDueSQL = `
UPDATE scheduled_posts
SET status = ?, claimed_at = ?, updated_at = ?
WHERE id IN (
	SELECT id FROM scheduled_posts
	WHERE status = ? AND scheduled_time <= ?
	ORDER BY scheduled_time ASC, id ASC
	LIMIT ?
	FOR UPDATE SKIP LOCKED
)
RETURNING *`

// ClaimDue atomically claims up to limit due posts, earliest first.
func (s *JobStore) ClaimDue(limit int, now time.Time) ([]models.ScheduledPost, error) {
	if limit <= 0 {
		return nil, nil
	}

	var claimed []models.ScheduledPost
	err := s.db.Raw(claimDueSQL,
		models.StatusProcessing, now, now,
		models.StatusPending, now, limit,
	).Scan(&claimed).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to claim due posts")
	}

	// RETURNING does not guarantee row order; restore the claim order.
	sort.Slice(claimed, func(i, j int) bool {
		if claimed[i].ScheduledTime.Equal(claimed[j].ScheduledTime) {
			return claimed[i].ID < claimed[j].ID
		}
		return claimed[i].ScheduledTime.Before(claimed[j].ScheduledTime)
	})

	return claimed, nil
}

// Complete moves a processing post to completed and records the created blog
// post id. A post that is not currently processing is left untouched.
func (s *JobStore) Complete(id uint, completedAt time.Time, postID int64) error {
	return s.finalize(id, "complete", map[string]interface{}{
		"status":         models.StatusCompleted,
		"completed_time": completedAt,
		"post_id":        postID,
	})
}

// Fail moves a processing post to failed with a human-readable reason.
func (s *JobStore) Fail(id uint, completedAt time.Time, reason string) error {
	return s.finalize(id, "fail", map[string]interface{}{
		"status":         models.StatusFailed,
		"completed_time": completedAt,
		"error":          reason,
	})
}

func (s *JobStore) finalize(id uint, op string, fields map[string]interface{}) error {
	res := s.db.Model(&models.ScheduledPost{}).
		Where("id = ? AND status = ?", id, models.StatusProcessing).
		Updates(fields)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to %s scheduled post %d", op, id)
	}
	if res.RowsAffected == 0 {
		return s.stateError(id, op)
	}
	return nil
}

// Delete removes a post, permitted only while it is still pending.
func (s *JobStore) Delete(id uint) error {
	res := s.db.Where("id = ? AND status = ?", id, models.StatusPending).
		Delete(&models.ScheduledPost{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "failed to delete scheduled post %d", id)
	}
	if res.RowsAffected == 0 {
		return s.stateError(id, "delete")
	}
	return nil
}

// stateError builds the StateError for a guarded update that matched no rows,
// distinguishing a missing row from one in the wrong status.
func (s *JobStore) stateError(id uint, op string) error {
	var post models.ScheduledPost
	err := s.db.First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(models.ErrNotFound, "scheduled post %d", id)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to load scheduled post %d", id)
	}
	return &models.StateError{ID: id, Status: post.Status, Op: op}
}

// Get returns a single post by id.
func (s *JobStore) Get(id uint) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := s.db.First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(models.ErrNotFound, "scheduled post %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get scheduled post %d", id)
	}
	return &post, nil
}

// List returns posts ordered by scheduled time, optionally filtered by status.
func (s *JobStore) List(status string, limit int) ([]models.ScheduledPost, error) {
	q := s.db.Order("scheduled_time ASC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var posts []models.ScheduledPost
	if err := q.Find(&posts).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list scheduled posts")
	}
	return posts, nil
}

// ReclaimStale returns processing rows whose claim is older than the cutoff to
// pending so a later tick can retry them. Covers ticks that crashed mid-batch.
func (s *JobStore) ReclaimStale(now time.Time, timeout time.Duration) (int64, error) {
	cutoff := now.Add(-timeout)
	res := s.db.Model(&models.ScheduledPost{}).
		Where("status = ? AND claimed_at < ?", models.StatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     models.StatusPending,
			"claimed_at": nil,
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to reclaim stale posts")
	}
	return res.RowsAffected, nil
}
