package service

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/newsmill/newsmill/internal/models"
	"github.com/newsmill/newsmill/internal/store"
)

// BulkRequest describes a batch of URLs to spread over a schedule.
type BulkRequest struct {
	URLs            []string           `json:"urls"`
	StartTime       string             `json:"start_time,omitempty"`
	IntervalMinutes int                `json:"interval_minutes,omitempty"`
	Randomize       bool               `json:"randomize"`
	Payload         models.PostPayload `json:"payload"`
}

// BulkFailure records one URL that could not be scheduled.
type BulkFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// BulkResult reports a partial-success batch accurately: ids that were
// persisted plus the per-URL failures.
type BulkResult struct {
	ScheduledIDs []uint        `json:"scheduled_ids"`
	Failures     []BulkFailure `json:"failures,omitempty"`
}

// Acceptable start-time layouts, tried in order.
var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Planner turns bulk-schedule requests into pending job rows with timestamps
// spread out over a configurable interval.
type Planner struct {
	queue    JobQueue
	activity ActivityRecorder
	logger   *zap.Logger

	defaultInterval int
	jitterMinutes   int
	now             func() time.Time
	jitter          func() int
}

func NewPlanner(queue JobQueue, activity ActivityRecorder, logger *zap.Logger, defaultIntervalMins, jitterMinutes int) *Planner {
	if jitterMinutes < 0 {
		jitterMinutes = 0
	}
	p := &Planner{
		queue:           queue,
		activity:        activity,
		logger:          logger,
		defaultInterval: defaultIntervalMins,
		jitterMinutes:   jitterMinutes,
		now:             time.Now,
	}
	p.jitter = func() int {
		if p.jitterMinutes == 0 {
			return 0
		}
		// Uniform in [-jitterMinutes, +jitterMinutes]
		return rand.Intn(2*p.jitterMinutes+1) - p.jitterMinutes
	}
	return p
}

// Plan validates the batch and assigns timestamps without persisting anything.
// Malformed URLs are dropped into the failure list; an empty or fully
// malformed batch is a validation error.
func (p *Planner) Plan(req BulkRequest) ([]models.ScheduledPost, []BulkFailure, error) {
	if len(req.URLs) == 0 {
		return nil, nil, &models.ValidationError{Field: "urls", Reason: "no URLs provided"}
	}

	start, err := p.parseStartTime(req.StartTime)
	if err != nil {
		return nil, nil, err
	}

	interval := req.IntervalMinutes
	if interval <= 0 {
		interval = p.defaultInterval
	}

	var planned []models.ScheduledPost
	var failures []BulkFailure
	for i, url := range req.URLs {
		if err := store.ValidateSourceURL(url); err != nil {
			failures = append(failures, BulkFailure{URL: url, Reason: err.Error()})
			continue
		}

		scheduled := start.Add(time.Duration(i*interval) * time.Minute)
		if req.Randomize {
			scheduled = scheduled.Add(time.Duration(p.jitter()) * time.Minute)
		}

		planned = append(planned, models.ScheduledPost{
			SourceURL:     url,
			SourceType:    models.SourceTypeURL,
			Payload:       req.Payload,
			ScheduledTime: scheduled,
		})
	}

	if len(planned) == 0 {
		return nil, nil, &models.ValidationError{Field: "urls", Reason: "no valid URLs provided"}
	}

	return planned, failures, nil
}

// ScheduleBatch plans and persists a batch. Each enqueue stands alone: a
// failure for URL k leaves URLs 0..k-1 scheduled and is reported, not rolled
// back.
func (p *Planner) ScheduleBatch(req BulkRequest) (*BulkResult, error) {
	planned, failures, err := p.Plan(req)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Failures: failures}
	for i := range planned {
		post := planned[i]
		id, err := p.queue.Enqueue(&post)
		if err != nil {
			p.logger.Warn("Failed to enqueue scheduled post",
				zap.String("source_url", post.SourceURL),
				zap.Error(err))
			result.Failures = append(result.Failures, BulkFailure{URL: post.SourceURL, Reason: err.Error()})
			continue
		}

		result.ScheduledIDs = append(result.ScheduledIDs, id)
		p.recordScheduled(post.SourceURL, post.ScheduledTime)
	}

	p.logger.Info("Bulk schedule processed",
		zap.Int("scheduled", len(result.ScheduledIDs)),
		zap.Int("failed", len(result.Failures)))

	return result, nil
}

// ScheduleOne persists a single URL for processing. An empty schedule time
// means process at the next tick.
func (p *Planner) ScheduleOne(url, sourceType string, payload models.PostPayload, when time.Time) (uint, error) {
	if when.IsZero() {
		when = p.now()
	}
	if sourceType == "" {
		sourceType = models.SourceTypeURL
	}

	post := models.ScheduledPost{
		SourceURL:     url,
		SourceType:    sourceType,
		Payload:       payload,
		ScheduledTime: when,
	}
	id, err := p.queue.Enqueue(&post)
	if err != nil {
		return 0, err
	}

	p.recordScheduled(url, when)
	return id, nil
}

func (p *Planner) recordScheduled(url string, when time.Time) {
	err := p.activity.Record(models.ActionSchedule, url, models.LogStatusSuccess,
		fmt.Sprintf("Scheduled post for %s", when.Format(time.RFC3339)))
	if err != nil {
		p.logger.Warn("Failed to record schedule activity", zap.Error(err))
	}
}

func (p *Planner) parseStartTime(raw string) (time.Time, error) {
	if raw == "" {
		return p.now(), nil
	}
	for _, layout := range startTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &models.ValidationError{Field: "start_time", Reason: "unparsable timestamp"}
}
