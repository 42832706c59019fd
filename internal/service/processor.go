package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/newsmill/newsmill/internal/config"
	"github.com/newsmill/newsmill/internal/models"
	"github.com/newsmill/newsmill/internal/store"
)

// ProcessorConfig bounds the work one tick may do and carries the generation
// settings shared by every job.
type ProcessorConfig struct {
	BatchLimit        int
	ScrapeTimeout     time.Duration
	GenerateTimeout   time.Duration
	PublishTimeout    time.Duration
	StaleClaimTimeout time.Duration
	AI                config.AIConfig
	Images            config.ImageConfig
	PostStatus        string
	DefaultAuthor     int
}

// TickReport summarizes one tick.
type TickReport struct {
	Reclaimed int64 `json:"reclaimed"`
	Claimed   int   `json:"claimed"`
	Completed int   `json:"completed"`
	Failed    int   `json:"failed"`
}

// Processor drives claimed jobs through scrape, generate and publish. One
// job's failure never aborts the batch.
type Processor struct {
	cfg       ProcessorConfig
	queue     JobQueue
	activity  ActivityRecorder
	scraper   Scraper
	generator Generator
	publisher Publisher
	logger    *zap.Logger
}

func NewProcessor(cfg ProcessorConfig, queue JobQueue, activity ActivityRecorder,
	scraper Scraper, generator Generator, publisher Publisher, logger *zap.Logger) *Processor {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 5
	}
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = 60 * time.Second
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 120 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 60 * time.Second
	}
	if cfg.StaleClaimTimeout <= 0 {
		cfg.StaleClaimTimeout = 30 * time.Minute
	}
	return &Processor{
		cfg:       cfg,
		queue:     queue,
		activity:  activity,
		scraper:   scraper,
		generator: generator,
		publisher: publisher,
		logger:    logger,
	}
}

// RunTick reclaims stale claims, then claims and processes up to the batch
// limit of due jobs in scheduled order.
func (p *Processor) RunTick(ctx context.Context, now time.Time) (*TickReport, error) {
	report := &TickReport{}

	reclaimed, err := p.queue.ReclaimStale(now, p.cfg.StaleClaimTimeout)
	if err != nil {
		p.logger.Error("Failed to reclaim stale claims", zap.Error(err))
	} else if reclaimed > 0 {
		report.Reclaimed = reclaimed
		p.logger.Warn("Reclaimed stale processing posts", zap.Int64("count", reclaimed))
		p.record(models.ActionReclaim, "", models.LogStatusWarning,
			fmt.Sprintf("Returned %d stale processing posts to pending", reclaimed))
	}

	claimed, err := p.queue.ClaimDue(p.cfg.BatchLimit, now)
	if err != nil {
		return report, errors.Wrap(err, "failed to claim due posts")
	}
	report.Claimed = len(claimed)
	if len(claimed) == 0 {
		return report, nil
	}

	p.logger.Info("Processing claimed posts", zap.Int("count", len(claimed)))

	for i := range claimed {
		if p.processJob(ctx, &claimed[i]) {
			report.Completed++
		} else {
			report.Failed++
		}
	}

	p.logger.Info("Tick completed",
		zap.Int("claimed", report.Claimed),
		zap.Int("completed", report.Completed),
		zap.Int("failed", report.Failed))

	return report, nil
}

// processJob runs the full pipeline for one claimed post and finalizes its
// status. Returns true when the post completed.
func (p *Processor) processJob(ctx context.Context, post *models.ScheduledPost) (ok bool) {
	// A panic anywhere in the pipeline fails the job, not the tick.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic while processing scheduled post",
				zap.Uint("id", post.ID), zap.Any("panic", r))
			p.failJob(post, fmt.Sprintf("panic: %v", r))
			ok = false
		}
	}()

	scraped, err := p.scrape(ctx, post.SourceURL)
	if err != nil {
		p.failJob(post, err.Error())
		return false
	}

	generated, err := p.generate(ctx, post, scraped)
	if err != nil {
		p.failJob(post, err.Error())
		return false
	}

	content := generated.Content

	// Internal linking is an enhancement: its failure downgrades the post,
	// never fails it.
	if post.Payload.InternalLinking {
		linkCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
		linked, err := p.generator.GenerateInternalLinks(linkCtx, content)
		cancel()
		if err != nil {
			p.logger.Warn("Internal linking failed, publishing without it",
				zap.Uint("id", post.ID), zap.Error(err))
			p.record(models.ActionProcess, post.SourceURL, models.LogStatusWarning,
				fmt.Sprintf("Internal linking skipped: %v", err))
		} else {
			content = linked
		}
	}

	draft := &PostDraft{
		Title:      generated.Title,
		Content:    content,
		Status:     p.cfg.PostStatus,
		Categories: post.Payload.Categories,
		Tags:       append(append([]string{}, post.Payload.Tags...), generated.SuggestedTags...),
		Author:     post.Payload.AuthorID,
	}
	if draft.Author == 0 {
		draft.Author = p.cfg.DefaultAuthor
	}

	postID, err := p.createPost(ctx, draft)
	if err != nil {
		p.failJob(post, (&models.CollaboratorError{Service: "post store", Err: err}).Error())
		return false
	}

	p.attachFeaturedImage(ctx, post, postID, generated, scraped)

	if post.Payload.LinkToSource {
		footer := content + fmt.Sprintf("\n<p class=\"source-link\">Source: <a href=%q rel=\"nofollow\">%s</a></p>", scraped.URL, scraped.URL)
		updateCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
		err := p.publisher.UpdatePost(updateCtx, postID, PostUpdate{Content: &footer})
		cancel()
		if err != nil {
			p.logger.Warn("Failed to append source link", zap.Int64("post_id", postID), zap.Error(err))
			p.record(models.ActionPublish, post.SourceURL, models.LogStatusWarning,
				fmt.Sprintf("Source link skipped: %v", err))
		}
	}

	now := time.Now()
	if err := p.queue.Complete(post.ID, now, postID); err != nil {
		// A late finalize after a stale reclaim lands here; the other claimant
		// owns the row now.
		p.logger.Warn("Could not complete post, already finalized elsewhere",
			zap.Uint("id", post.ID), zap.Error(err))
		return false
	}

	p.record(models.ActionPublish, post.SourceURL, models.LogStatusSuccess,
		fmt.Sprintf("Published post %d from scheduled job %d", postID, post.ID),
		store.WithPostID(postID))

	return true
}

func (p *Processor) createPost(ctx context.Context, draft *PostDraft) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()
	return p.publisher.CreatePost(ctx, draft)
}

func (p *Processor) scrape(ctx context.Context, url string) (*ScrapedArticle, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ScrapeTimeout)
	defer cancel()

	scraped, err := p.scraper.ScrapeArticle(ctx, url)
	if err != nil {
		return nil, &models.CollaboratorError{Service: "scraper", Err: err}
	}
	if scraped.Content == "" {
		return nil, &models.CollaboratorError{Service: "scraper", Err: errors.New("empty article content")}
	}
	return scraped, nil
}

func (p *Processor) generate(ctx context.Context, post *models.ScheduledPost, scraped *ScrapedArticle) (*GeneratedContent, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
	defer cancel()

	req := &GenerateRequest{
		Content:        scraped.Content,
		Title:          scraped.Title,
		Model:          post.Payload.AIModel,
		Language:       post.Payload.Language,
		Tone:           post.Payload.Tone,
		APIKey:         p.cfg.AI.APIKey,
		MinWordCount:   p.cfg.AI.MinWordCount,
		KeywordDensity: p.cfg.AI.KeywordDensity,
		AutoHeadings:   p.cfg.AI.AutoHeadings,
		UseLists:       p.cfg.AI.UseLists,
		AddFAQ:         p.cfg.AI.AddFAQ,
		AddConclusion:  p.cfg.AI.AddConclusion,
	}
	if req.Model == "" {
		req.Model = p.cfg.AI.Model
	}
	if req.Language == "" {
		req.Language = p.cfg.AI.Language
	}
	if req.Tone == "" {
		req.Tone = p.cfg.AI.Tone
	}

	generated, err := p.generator.GenerateContent(ctx, req)
	if err != nil {
		return nil, &models.CollaboratorError{Service: "generator", Err: err}
	}
	if generated.Title == "" {
		generated.Title = scraped.Title
	}
	return generated, nil
}

// attachFeaturedImage sets the post thumbnail from the scraped images or an
// AI-generated one. Best effort on every path.
func (p *Processor) attachFeaturedImage(ctx context.Context, post *models.ScheduledPost, postID int64,
	generated *GeneratedContent, scraped *ScrapedArticle) {
	var imageURL string

	switch {
	case post.Payload.UseScrapedImage && len(scraped.Images) > 0:
		imageURL = scraped.Images[0].URL
	case post.Payload.UseAIImage:
		prompt := post.Payload.ImagePrompt
		if prompt == "" {
			prompt = generated.Title
		}
		style := post.Payload.ImageStyle
		if style == "" {
			style = p.cfg.Images.Style
		}
		imageCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerateTimeout)
		url, err := p.generator.GenerateImage(imageCtx, prompt, p.cfg.Images.Model, style)
		cancel()
		if err != nil {
			p.logger.Warn("Image generation failed, publishing without featured image",
				zap.Int64("post_id", postID), zap.Error(err))
			p.record(models.ActionPublish, post.SourceURL, models.LogStatusWarning,
				fmt.Sprintf("Featured image skipped: %v", err))
			return
		}
		imageURL = url
	case generated.FeaturedImage != "":
		imageURL = generated.FeaturedImage
	default:
		return
	}

	attachCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()
	if err := p.publisher.SetFeaturedImage(attachCtx, postID, imageURL); err != nil {
		p.logger.Warn("Failed to set featured image",
			zap.Int64("post_id", postID), zap.Error(err))
		p.record(models.ActionPublish, post.SourceURL, models.LogStatusWarning,
			fmt.Sprintf("Featured image skipped: %v", err))
	}
}

func (p *Processor) failJob(post *models.ScheduledPost, reason string) {
	if err := p.queue.Fail(post.ID, time.Now(), reason); err != nil {
		p.logger.Warn("Could not fail post, already finalized elsewhere",
			zap.Uint("id", post.ID), zap.Error(err))
	}
	p.record(models.ActionProcess, post.SourceURL, models.LogStatusError,
		fmt.Sprintf("Failed to process scheduled post: %s", reason))
}

func (p *Processor) record(action, sourceURL, status, message string, options ...store.LogOption) {
	if err := p.activity.Record(action, sourceURL, status, message, options...); err != nil {
		p.logger.Warn("Failed to record activity", zap.Error(err))
	}
}
