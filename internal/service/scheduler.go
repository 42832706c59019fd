package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/newsmill/newsmill/internal/config"
)

// Scheduler owns the periodic timers: one loop drives the tick processor, the
// other the feed ingestor. The loops are independent; overlap safety comes
// from the job store's atomic claim, not from anything here.
type Scheduler struct {
	config      *config.SchedulerConfig
	logger      *zap.Logger
	processor   *Processor
	ingestor    *Ingestor
	processTick *time.Ticker
	feedTick    *time.Ticker
	stopCh      chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, processor *Processor, ingestor *Ingestor) *Scheduler {
	return &Scheduler{
		config:    cfg,
		logger:    logger,
		processor: processor,
		ingestor:  ingestor,
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	processInterval, err := time.ParseDuration(s.config.ProcessInterval)
	if err != nil {
		s.logger.Error("Invalid process interval", zap.String("interval", s.config.ProcessInterval), zap.Error(err))
		return err
	}
	feedInterval, err := time.ParseDuration(s.config.FeedInterval)
	if err != nil {
		s.logger.Error("Invalid feed interval", zap.String("interval", s.config.FeedInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler",
		zap.String("process_interval", s.config.ProcessInterval),
		zap.String("feed_interval", s.config.FeedInterval))

	s.processTick = time.NewTicker(processInterval)
	s.feedTick = time.NewTicker(feedInterval)

	// Run the first pass immediately
	go func() {
		s.logger.Info("Running initial tick")
		s.runProcess(ctx)
		s.runIngest(ctx)
	}()

	go func() {
		for {
			select {
			case <-s.processTick.C:
				s.runProcess(ctx)
			case <-s.feedTick.C:
				s.runIngest(ctx)
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.processTick != nil {
		s.processTick.Stop()
	}
	if s.feedTick != nil {
		s.feedTick.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

func (s *Scheduler) runProcess(ctx context.Context) {
	start := time.Now()
	report, err := s.processor.RunTick(ctx, start)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Tick failed",
			zap.Error(err),
			zap.Duration("duration", duration))
		return
	}

	s.logger.Info("Tick finished",
		zap.Int("claimed", report.Claimed),
		zap.Int("completed", report.Completed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", duration))
}

func (s *Scheduler) runIngest(ctx context.Context) {
	start := time.Now()
	report, err := s.ingestor.IngestAllFeeds(ctx, start)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Feed ingestion failed",
			zap.Error(err),
			zap.Duration("duration", duration))
		return
	}

	s.logger.Info("Feed ingestion finished",
		zap.Int("feeds", report.FeedsProcessed),
		zap.Int("scheduled", report.ItemsScheduled),
		zap.Duration("duration", duration))
}
