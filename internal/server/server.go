package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/newsmill/newsmill/internal/client"
	"github.com/newsmill/newsmill/internal/config"
	"github.com/newsmill/newsmill/internal/service"
	"github.com/newsmill/newsmill/internal/store"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Stores
	Jobs     *store.JobStore
	Ledger   *store.Ledger
	Activity *store.ActivityStore

	// Services
	Planner   *service.Planner
	Processor *service.Processor
	Ingestor  *service.Ingestor
	Scheduler *service.Scheduler
	Auth      *service.AuthService

	// Collaborators
	ContentAPI *client.ContentAPI
	Fetcher    service.FeedFetcher
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := store.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	srv := &Server{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}

	// Stores
	srv.Jobs = store.NewJobStore(db)
	srv.Ledger = store.NewLedger(db)
	srv.Activity = store.NewActivityStore(db)

	// Collaborators: the content API when configured, built-in fallbacks
	// otherwise
	var scraper service.Scraper
	var generator service.Generator
	if cfg.Scraper.APIURL != "" {
		api := client.NewContentAPI(&cfg.Scraper, cfg.AI.APIKey)
		srv.ContentAPI = api
		scraper = api
		generator = api
		srv.Fetcher = api
	} else {
		logger.Warn("No content API configured, using built-in scraper and feed parser")
		scraper = client.NewLocalScraper(cfg.Scraper.UserAgent, cfg.Scraper.FetchImages)
		generator = client.NewPassthroughGenerator()
		srv.Fetcher = client.NewLocalFeed(cfg.Scraper.UserAgent)
	}
	publisher := client.NewWordPress(&cfg.WordPress)

	staleTimeout, err := time.ParseDuration(cfg.Scheduler.StaleClaimTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid stale claim timeout: %w", err)
	}

	// Services
	srv.Planner = service.NewPlanner(srv.Jobs, srv.Activity, logger,
		cfg.Scheduler.BulkIntervalMins, cfg.Scheduler.BulkRandomizeMinutes)
	srv.Processor = service.NewProcessor(service.ProcessorConfig{
		BatchLimit:        cfg.Scheduler.BatchLimit,
		ScrapeTimeout:     time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		GenerateTimeout:   time.Duration(cfg.Scraper.GenerateTimeout) * time.Second,
		StaleClaimTimeout: staleTimeout,
		AI:                cfg.AI,
		Images:            cfg.Images,
		PostStatus:        cfg.WordPress.PostStatus,
		DefaultAuthor:     cfg.WordPress.DefaultAuthor,
	}, srv.Jobs, srv.Activity, scraper, generator, publisher, logger)
	srv.Ingestor = service.NewIngestor(service.IngestorConfig{
		Feeds:           cfg.RSS.Feeds,
		AI:              cfg.AI,
		Images:          cfg.Images,
		LinkToSource:    cfg.RSS.LinkToSource,
		AutoCategorize:  cfg.RSS.AutoCategorize,
		ItemSpacing:     time.Duration(cfg.Scheduler.FeedItemSpacingMins) * time.Minute,
		FetchTimeout:    time.Duration(cfg.Scraper.TimeoutSeconds) * time.Second,
		LedgerRetention: time.Duration(cfg.Scheduler.LedgerRetentionDays) * 24 * time.Hour,
	}, srv.Fetcher, srv.Jobs, srv.Ledger, srv.Activity, logger)
	srv.Scheduler = service.NewScheduler(&cfg.Scheduler, logger, srv.Processor, srv.Ingestor)
	srv.Auth = service.NewAuthService(logger, cfg.Server.TOTPSecret)

	// Create router
	srv.Router = gin.New()

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Request id middleware
	s.Router.Use(func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	})

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Auth-Code")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", s.handleHealth)

	// API routes
	api := s.Router.Group("/api/v1")
	api.Use(s.Auth.Middleware())
	{
		schedule := api.Group("/schedule")
		{
			schedule.POST("", s.handleScheduleOne)
			schedule.POST("/bulk", s.handleScheduleBulk)
			schedule.GET("", s.handleListScheduled)
			schedule.DELETE("/:id", s.handleDeleteScheduled)
		}

		feeds := api.Group("/feeds")
		{
			feeds.GET("", s.handleListFeeds)
			feeds.GET("/stats", s.handleFeedStats)
			feeds.POST("/test", s.handleTestFeed)
			feeds.POST("/ingest", s.handleIngestNow)
		}

		api.POST("/tick", s.handleTickNow)
		api.GET("/logs", s.handleListLogs)
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop scheduler first
	s.Scheduler.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
