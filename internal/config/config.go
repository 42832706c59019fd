package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/newsmill/newsmill/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	AI        AIConfig        `yaml:"ai"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Images    ImageConfig     `yaml:"images"`
	WordPress WordPressConfig `yaml:"wordpress"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RSS       RSSConfig       `yaml:"rss"`
}

type ServerConfig struct {
	Port       int    `yaml:"port"`
	Host       string `yaml:"host"`
	Mode       string `yaml:"mode"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
	TOTPSecret string `yaml:"totp_secret"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

// AIConfig holds the content-generation settings that are copied into each
// scheduled post's payload at creation time.
type AIConfig struct {
	Model          string  `yaml:"model"`
	Language       string  `yaml:"language"`
	Tone           string  `yaml:"tone"`
	APIKey         string  `yaml:"api_key"`
	MinWordCount   int     `yaml:"min_word_count"`
	KeywordDensity float64 `yaml:"keyword_density"`
	AutoHeadings   bool    `yaml:"auto_headings"`
	UseLists       bool    `yaml:"use_lists"`
	AddFAQ         bool    `yaml:"add_faq"`
	AddConclusion  bool    `yaml:"add_conclusion"`
	InternalLinks  bool    `yaml:"internal_links"`
}

type ScraperConfig struct {
	APIURL            string `yaml:"api_url"`
	FetchImages       bool   `yaml:"fetch_images"`
	FetchSocialEmbeds bool   `yaml:"fetch_social_embeds"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	GenerateTimeout   int    `yaml:"generate_timeout_seconds"`
	UserAgent         string `yaml:"user_agent"`
}

type ImageConfig struct {
	UseScraped bool   `yaml:"use_scraped"`
	UseAI      bool   `yaml:"use_ai"`
	Model      string `yaml:"model"`
	Style      string `yaml:"style"`
}

type WordPressConfig struct {
	BaseURL       string `yaml:"base_url"`
	Username      string `yaml:"username"`
	AppPassword   string `yaml:"app_password"`
	DefaultAuthor int    `yaml:"default_author"`
	PostStatus    string `yaml:"post_status"`
}

type SchedulerConfig struct {
	Enabled              bool   `yaml:"enabled"`
	ProcessInterval      string `yaml:"process_interval"`
	FeedInterval         string `yaml:"feed_interval"`
	BatchLimit           int    `yaml:"batch_limit"`
	StaleClaimTimeout    string `yaml:"stale_claim_timeout"`
	LedgerRetentionDays  int    `yaml:"ledger_retention_days"`
	FeedItemSpacingMins  int    `yaml:"feed_item_spacing_minutes"`
	BulkIntervalMins     int    `yaml:"bulk_interval_minutes"`
	BulkRandomizeMinutes int    `yaml:"bulk_randomize_minutes"`
}

type FeedConfig struct {
	URL            string `yaml:"url"`
	Name           string `yaml:"name"`
	Keywords       string `yaml:"keywords"`
	FetchLimit     int    `yaml:"fetch_limit"`
	FetchFrequency string `yaml:"fetch_frequency"`
}

type RSSConfig struct {
	Feeds          []FeedConfig `yaml:"feeds"`
	LinkToSource   bool         `yaml:"link_to_source"`
	AutoCategorize bool         `yaml:"auto_categorize"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with the service defaults. Split out
// of LoadConfig so tests can build configs without a file on disk.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5811
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "openai"
	}
	if cfg.AI.Language == "" {
		cfg.AI.Language = "english"
	}
	if cfg.AI.Tone == "" {
		cfg.AI.Tone = "default"
	}
	if cfg.AI.MinWordCount == 0 {
		cfg.AI.MinWordCount = 500
	}
	if cfg.AI.KeywordDensity == 0 {
		cfg.AI.KeywordDensity = 2.5
	}
	if cfg.Scraper.TimeoutSeconds == 0 {
		cfg.Scraper.TimeoutSeconds = 60
	}
	if cfg.Scraper.GenerateTimeout == 0 {
		cfg.Scraper.GenerateTimeout = 120
	}
	if cfg.Scraper.UserAgent == "" {
		cfg.Scraper.UserAgent = "newsmill/1.0"
	}
	if cfg.Images.Model == "" {
		cfg.Images.Model = "dall-e"
	}
	if cfg.Images.Style == "" {
		cfg.Images.Style = "digital-art"
	}
	if cfg.WordPress.PostStatus == "" {
		cfg.WordPress.PostStatus = "publish"
	}
	if cfg.WordPress.DefaultAuthor == 0 {
		cfg.WordPress.DefaultAuthor = 1
	}
	if cfg.Scheduler.ProcessInterval == "" {
		cfg.Scheduler.ProcessInterval = "1h"
	}
	if cfg.Scheduler.FeedInterval == "" {
		cfg.Scheduler.FeedInterval = "12h"
	}
	if cfg.Scheduler.BatchLimit == 0 {
		cfg.Scheduler.BatchLimit = 5
	}
	if cfg.Scheduler.StaleClaimTimeout == "" {
		cfg.Scheduler.StaleClaimTimeout = "30m"
	}
	if cfg.Scheduler.LedgerRetentionDays == 0 {
		cfg.Scheduler.LedgerRetentionDays = 30
	}
	if cfg.Scheduler.FeedItemSpacingMins == 0 {
		cfg.Scheduler.FeedItemSpacingMins = 30
	}
	if cfg.Scheduler.BulkIntervalMins == 0 {
		cfg.Scheduler.BulkIntervalMins = 60
	}
	if cfg.Scheduler.BulkRandomizeMinutes == 0 {
		cfg.Scheduler.BulkRandomizeMinutes = 15
	}
	for i := range cfg.RSS.Feeds {
		if cfg.RSS.Feeds[i].FetchLimit == 0 {
			cfg.RSS.Feeds[i].FetchLimit = 10
		}
		if cfg.RSS.Feeds[i].FetchFrequency == "" {
			cfg.RSS.Feeds[i].FetchFrequency = "twicedaily"
		}
	}
}
