package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newsmill/newsmill/internal/config"
	"github.com/newsmill/newsmill/internal/models"
	"github.com/newsmill/newsmill/internal/store"
)

// IngestorConfig is the per-run settings snapshot: the configured feeds plus
// the generation options copied into each new job's payload.
type IngestorConfig struct {
	Feeds           []config.FeedConfig
	AI              config.AIConfig
	Images          config.ImageConfig
	LinkToSource    bool
	AutoCategorize  bool
	ItemSpacing     time.Duration
	FetchTimeout    time.Duration
	LedgerRetention time.Duration
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	FeedsProcessed int `json:"feeds_processed"`
	FeedsFailed    int `json:"feeds_failed"`
	ItemsScheduled int `json:"items_scheduled"`
	ItemsSkipped   int `json:"items_skipped"`
}

// Ingestor turns configured feeds into pending jobs, deduplicating against
// the ledger so one item is scheduled at most once across runs.
type Ingestor struct {
	cfg      IngestorConfig
	fetcher  FeedFetcher
	queue    JobQueue
	ledger   DedupLedger
	activity ActivityRecorder
	logger   *zap.Logger
}

func NewIngestor(cfg IngestorConfig, fetcher FeedFetcher, queue JobQueue, ledger DedupLedger,
	activity ActivityRecorder, logger *zap.Logger) *Ingestor {
	if cfg.ItemSpacing <= 0 {
		cfg.ItemSpacing = 30 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 60 * time.Second
	}
	if cfg.LedgerRetention <= 0 {
		cfg.LedgerRetention = 30 * 24 * time.Hour
	}
	return &Ingestor{
		cfg:      cfg,
		fetcher:  fetcher,
		queue:    queue,
		ledger:   ledger,
		activity: activity,
		logger:   logger,
	}
}

// IngestAllFeeds processes every configured feed. A fetch failure on one feed
// is logged and does not block the rest.
func (in *Ingestor) IngestAllFeeds(ctx context.Context, now time.Time) (*IngestReport, error) {
	report := &IngestReport{}

	if evicted, err := in.ledger.EvictOlderThan(now.Add(-in.cfg.LedgerRetention)); err != nil {
		in.logger.Warn("Ledger eviction failed", zap.Error(err))
	} else if evicted > 0 {
		in.logger.Info("Evicted stale ledger entries", zap.Int64("count", evicted))
	}

	for _, feed := range in.cfg.Feeds {
		scheduled, skipped, err := in.ingestFeed(ctx, feed, now)
		if err != nil {
			report.FeedsFailed++
			in.logger.Error("Failed to process feed",
				zap.String("feed_url", feed.URL), zap.Error(err))
			in.record(feed.URL, models.LogStatusError,
				fmt.Sprintf("Failed to process feed: %v", err))
			continue
		}

		report.FeedsProcessed++
		report.ItemsScheduled += scheduled
		report.ItemsSkipped += skipped
		in.record(feed.URL, models.LogStatusSuccess,
			fmt.Sprintf("Processed feed. Scheduled %d new items.", scheduled))
	}

	in.logger.Info("Feed ingestion completed",
		zap.Int("feeds", report.FeedsProcessed),
		zap.Int("failed", report.FeedsFailed),
		zap.Int("scheduled", report.ItemsScheduled),
		zap.Int("skipped", report.ItemsSkipped))

	return report, nil
}

func (in *Ingestor) ingestFeed(ctx context.Context, feed config.FeedConfig, now time.Time) (scheduled, skipped int, err error) {
	fetchCtx, cancel := context.WithTimeout(ctx, in.cfg.FetchTimeout)
	defer cancel()

	items, err := in.fetcher.FetchFeed(fetchCtx, feed.URL, feed.FetchLimit, feed.Keywords)
	if err != nil {
		return 0, 0, &models.CollaboratorError{Service: "feed fetcher", Err: err}
	}

	payload := in.buildPayload(feed)

	for _, item := range items {
		if err := store.ValidateSourceURL(item.Link); err != nil {
			skipped++
			continue
		}

		seen, err := in.ledger.HasSeen(item.Link)
		if err != nil {
			in.logger.Warn("Ledger lookup failed, skipping item",
				zap.String("url", item.Link), zap.Error(err))
			skipped++
			continue
		}
		if seen {
			skipped++
			continue
		}

		post := models.ScheduledPost{
			SourceURL:     item.Link,
			SourceType:    models.SourceTypeRSS,
			Payload:       payload,
			ScheduledTime: now.Add(time.Duration(scheduled) * in.cfg.ItemSpacing),
		}
		if _, err := in.queue.Enqueue(&post); err != nil {
			in.logger.Warn("Failed to enqueue feed item",
				zap.String("url", item.Link), zap.Error(err))
			skipped++
			continue
		}
		scheduled++

		// Mark only after a successful enqueue so a failed insert stays
		// eligible for the next run.
		if err := in.ledger.MarkSeen(item.Link, now); err != nil {
			in.logger.Warn("Failed to mark url as processed",
				zap.String("url", item.Link), zap.Error(err))
		}
	}

	return scheduled, skipped, nil
}

func (in *Ingestor) buildPayload(feed config.FeedConfig) models.PostPayload {
	payload := NewPayload(in.cfg.AI, in.cfg.Images, in.cfg.LinkToSource)
	if in.cfg.AutoCategorize && feed.Name != "" {
		payload.Categories = []string{feed.Name}
	}
	return payload
}

func (in *Ingestor) record(feedURL, status, message string) {
	if err := in.activity.Record(models.ActionRSS, feedURL, status, message); err != nil {
		in.logger.Warn("Failed to record feed activity", zap.Error(err))
	}
}
