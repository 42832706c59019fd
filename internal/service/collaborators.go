package service

import (
	"context"
	"time"

	"github.com/newsmill/newsmill/internal/models"
	"github.com/newsmill/newsmill/internal/store"
)

// ScrapedImage is one image extracted from a source article.
type ScrapedImage struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

// ScrapedArticle is the result of scraping a source URL.
type ScrapedArticle struct {
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Author  string         `json:"author,omitempty"`
	Date    *time.Time     `json:"date,omitempty"`
	Images  []ScrapedImage `json:"images,omitempty"`
	URL     string         `json:"url"`
}

// FeedItem is one entry pulled from an RSS/Atom feed.
type FeedItem struct {
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Published   *time.Time `json:"date,omitempty"`
}

// GenerateRequest carries everything the content generator needs for one
// article rewrite.
type GenerateRequest struct {
	Content        string  `json:"content"`
	Title          string  `json:"title"`
	Model          string  `json:"model"`
	Language       string  `json:"language"`
	Tone           string  `json:"tone"`
	APIKey         string  `json:"api_key"`
	MinWordCount   int     `json:"min_word_count"`
	KeywordDensity float64 `json:"keyword_density"`
	AutoHeadings   bool    `json:"auto_headings"`
	UseLists       bool    `json:"use_lists"`
	AddFAQ         bool    `json:"add_faq"`
	AddConclusion  bool    `json:"add_conclusion"`
}

// GeneratedContent is the rewritten article returned by the generator.
type GeneratedContent struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	SuggestedTags []string `json:"suggested_tags,omitempty"`
	FeaturedImage string   `json:"featured_image,omitempty"`
}

// PostDraft is the final article handed to the post store.
type PostDraft struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Status     string   `json:"status"`
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Author     int      `json:"author"`
}

// PostUpdate holds post fields to change after creation. Nil fields are left
// alone.
type PostUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Scraper extracts article content from a source URL.
type Scraper interface {
	ScrapeArticle(ctx context.Context, url string) (*ScrapedArticle, error)
}

// FeedFetcher pulls items from a feed, bounded by limit and filtered by a
// comma-separated keyword list.
type FeedFetcher interface {
	FetchFeed(ctx context.Context, feedURL string, limit int, keywords string) ([]FeedItem, error)
	TestFeed(ctx context.Context, feedURL string) error
}

// Generator rewrites scraped content and produces optional enhancements.
type Generator interface {
	GenerateContent(ctx context.Context, req *GenerateRequest) (*GeneratedContent, error)
	GenerateImage(ctx context.Context, prompt, model, style string) (string, error)
	GenerateInternalLinks(ctx context.Context, content string) (string, error)
}

// Publisher writes finished articles into the blog platform.
type Publisher interface {
	CreatePost(ctx context.Context, draft *PostDraft) (int64, error)
	SetFeaturedImage(ctx context.Context, postID int64, imageURL string) error
	UpdatePost(ctx context.Context, postID int64, update PostUpdate) error
}

// JobQueue is the slice of the job store the engine mutates through.
type JobQueue interface {
	Enqueue(post *models.ScheduledPost) (uint, error)
	ClaimDue(limit int, now time.Time) ([]models.ScheduledPost, error)
	Complete(id uint, completedAt time.Time, postID int64) error
	Fail(id uint, completedAt time.Time, reason string) error
	ReclaimStale(now time.Time, timeout time.Duration) (int64, error)
}

// DedupLedger is the seen-URL record consulted by feed ingestion.
type DedupLedger interface {
	HasSeen(url string) (bool, error)
	MarkSeen(url string, at time.Time) error
	EvictOlderThan(cutoff time.Time) (int64, error)
}

// ActivityRecorder appends attempt outcomes.
type ActivityRecorder interface {
	Record(action, sourceURL, status, message string, options ...store.LogOption) error
}
