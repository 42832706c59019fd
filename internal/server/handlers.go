package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/newsmill/newsmill/internal/models"
	"github.com/newsmill/newsmill/internal/service"
)

func (s *Server) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	}

	if s.ContentAPI != nil {
		if err := s.ContentAPI.Status(c.Request.Context()); err != nil {
			resp["content_api"] = "unreachable"
		} else {
			resp["content_api"] = "ok"
		}
	}

	c.JSON(http.StatusOK, resp)
}

type scheduleOneRequest struct {
	URL          string              `json:"url"`
	SourceType   string              `json:"source_type,omitempty"`
	ScheduleTime string              `json:"schedule_time,omitempty"`
	Payload      *models.PostPayload `json:"payload,omitempty"`
}

func (s *Server) handleScheduleOne(c *gin.Context) {
	var req scheduleOneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var when time.Time
	if req.ScheduleTime != "" {
		parsed, err := time.ParseInLocation("2006-01-02 15:04:05", req.ScheduleTime, time.Local)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, req.ScheduleTime)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unparsable schedule_time"})
			return
		}
		when = parsed
	}

	payload := service.NewPayload(s.Config.AI, s.Config.Images, s.Config.RSS.LinkToSource)
	if req.Payload != nil {
		payload = *req.Payload
	}

	id, err := s.Planner.ScheduleOne(req.URL, req.SourceType, payload, when)
	if err != nil {
		s.respondError(c, err, "Failed to schedule post")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleScheduleBulk(c *gin.Context) {
	var req service.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Payload.IsZero() {
		req.Payload = service.NewPayload(s.Config.AI, s.Config.Images, s.Config.RSS.LinkToSource)
	}

	result, err := s.Planner.ScheduleBatch(req)
	if err != nil {
		s.respondError(c, err, "Failed to schedule batch")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleListScheduled(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	status := c.Query("status")

	posts, err := s.Jobs.List(status, limit)
	if err != nil {
		s.respondError(c, err, "Failed to list scheduled posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"scheduled_posts": posts})
}

func (s *Server) handleDeleteScheduled(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return
	}

	post, err := s.Jobs.Get(uint(id))
	if err != nil {
		s.respondError(c, err, "Failed to delete scheduled post")
		return
	}

	if err := s.Jobs.Delete(uint(id)); err != nil {
		s.respondError(c, err, "Failed to delete scheduled post")
		return
	}

	if err := s.Activity.Record(models.ActionDeleteSchedule, post.SourceURL,
		models.LogStatusSuccess, "Deleted scheduled post"); err != nil {
		s.Logger.Warn("Failed to record delete activity", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scheduled post deleted"})
}

func (s *Server) handleListFeeds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"feeds": s.Config.RSS.Feeds})
}

func (s *Server) handleFeedStats(c *gin.Context) {
	stats, err := s.Activity.FeedStats(time.Now())
	if err != nil {
		s.respondError(c, err, "Failed to compute feed stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

type testFeedRequest struct {
	FeedURL string `json:"feed_url"`
}

func (s *Server) handleTestFeed(c *gin.Context) {
	var req testFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FeedURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feed_url is required"})
		return
	}

	if err := s.Fetcher.TestFeed(c.Request.Context(), req.FeedURL); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feed is valid"})
}

func (s *Server) handleIngestNow(c *gin.Context) {
	report, err := s.Ingestor.IngestAllFeeds(c.Request.Context(), time.Now())
	if err != nil {
		s.respondError(c, err, "Failed to ingest feeds")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleTickNow(c *gin.Context) {
	report, err := s.Processor.RunTick(c.Request.Context(), time.Now())
	if err != nil {
		s.respondError(c, err, "Failed to run tick")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListLogs(c *gin.Context) {
	limit := queryInt(c, "limit", 100)
	action := c.Query("action")

	entries, err := s.Activity.List(action, limit)
	if err != nil {
		s.respondError(c, err, "Failed to list activity log")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// respondError maps domain errors to status codes: bad input is 400, illegal
// transitions are 409, missing rows are 404, everything else is 500.
func (s *Server) respondError(c *gin.Context, err error, message string) {
	var validationErr *models.ValidationError
	var stateErr *models.StateError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": stateErr.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		s.Logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
