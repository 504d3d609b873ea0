// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// NewsAPIConfig configures the primary bulk-search adapter.
type NewsAPIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the "everything" search endpoint.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey authenticates requests. Required for run and serve.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Language restricts results (default "en").
	Language string `json:"language" yaml:"language" mapstructure:"language"`
}

// FeedsConfig configures the per-outlet RSS fallback.
type FeedsConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Outlets maps a registrable domain to its feed URLs.
	Outlets map[string][]string `json:"outlets" yaml:"outlets" mapstructure:"outlets"`

	// Concurrency bounds parallel outlet fetches (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// MaxItems caps items taken from a single feed (default 50).
	MaxItems int `json:"max_items" yaml:"max_items" mapstructure:"max_items"`
}

// AIConfig holds settings for the remote summarizer.
type AIConfig struct {
	// Model is the model identifier (e.g. "command-r").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey authenticates the summarizer. Empty disables summarization.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Timeout bounds a single summarization call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// SummarizeConfig configures the summarization batcher.
type SummarizeConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Concurrency is the maximum number of in-flight remote calls (default 3).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// RetryDelays is the backoff schedule; its length is the retry count.
	RetryDelays []time.Duration `json:"retry_delays" yaml:"retry_delays" mapstructure:"retry_delays"`

	// MaxInputChars truncates text sent to the summarizer (default 8000).
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars" mapstructure:"max_input_chars"`

	// MaxSummaryChars truncates returned summaries (default 800).
	MaxSummaryChars int `json:"max_summary_chars" yaml:"max_summary_chars" mapstructure:"max_summary_chars"`
}

// StoreDriver selects the story store backend.
type StoreDriver string

const (
	StoreSQLite StoreDriver = "sqlite"
	StoreMongo  StoreDriver = "mongo"
)

// StoreConfig configures persistence.
type StoreConfig struct {
	// Driver is sqlite (default) or mongo.
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DataDir holds the SQLite database and exports.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// MongoURI and MongoDatabase are used when Driver is mongo.
	MongoURI      string `json:"mongo_uri,omitempty" yaml:"mongo_uri,omitempty" mapstructure:"mongo_uri"`
	MongoDatabase string `json:"mongo_database" yaml:"mongo_database" mapstructure:"mongo_database"`

	// BatchSize is the upsert chunk size (default 50).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`
}

// CacheConfig configures the summary cache. An empty RedisAddr keeps the
// cache in the SQLite database.
type CacheConfig struct {
	RedisAddr     string        `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisPassword string        `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`
	Retention     time.Duration `json:"retention" yaml:"retention" mapstructure:"retention"`
}

// PublishConfig configures run notifications. An empty NATSURL disables them.
type PublishConfig struct {
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty" mapstructure:"nats_url"`
	Subject string `json:"subject" yaml:"subject" mapstructure:"subject"`
}

// ModeConfig holds the parameters of one run level.
type ModeConfig struct {
	// Window is how far back the search reaches.
	Window time.Duration `json:"window" yaml:"window" mapstructure:"window"`

	// PageSize is the per-page result count for the primary search.
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// MaxPages is the number of primary search pages fetched per query.
	MaxPages int `json:"max_pages" yaml:"max_pages" mapstructure:"max_pages"`
}

// PipelineConfig configures the orchestrator.
type PipelineConfig struct {
	// Topics are the search queries issued every run.
	Topics []string `json:"topics" yaml:"topics" mapstructure:"topics"`

	// Domains restricts the primary search and drives the outlet fallback.
	Domains []string `json:"domains" yaml:"domains" mapstructure:"domains"`

	// SortBy is passed to the primary search (default "publishedAt").
	SortBy string `json:"sort_by" yaml:"sort_by" mapstructure:"sort_by"`

	Light ModeConfig `json:"light" yaml:"light" mapstructure:"light"`
	Full  ModeConfig `json:"full" yaml:"full" mapstructure:"full"`
}

// MaintenanceConfig configures the trending and retention sweep.
type MaintenanceConfig struct {
	// TrendingWindow limits trending candidates to recently processed stories.
	TrendingWindow time.Duration `json:"trending_window" yaml:"trending_window" mapstructure:"trending_window"`

	// TrendingLimit is the number of stories flagged as trending.
	TrendingLimit int `json:"trending_limit" yaml:"trending_limit" mapstructure:"trending_limit"`

	// StoryRetention deletes stories processed before now minus retention.
	StoryRetention time.Duration `json:"story_retention" yaml:"story_retention" mapstructure:"story_retention"`
}

// Config groups every component configuration.
type Config struct {
	NewsAPI     NewsAPIConfig     `json:"newsapi" yaml:"newsapi" mapstructure:"newsapi"`
	Feeds       FeedsConfig       `json:"feeds" yaml:"feeds" mapstructure:"feeds"`
	Summarize   SummarizeConfig   `json:"summarize" yaml:"summarize" mapstructure:"summarize"`
	Store       StoreConfig       `json:"store" yaml:"store" mapstructure:"store"`
	Cache       CacheConfig       `json:"cache" yaml:"cache" mapstructure:"cache"`
	Publish     PublishConfig     `json:"publish" yaml:"publish" mapstructure:"publish"`
	Pipeline    PipelineConfig    `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Maintenance MaintenanceConfig `json:"maintenance" yaml:"maintenance" mapstructure:"maintenance"`
}

const defaultUserAgent = "goodnews-engine/0.1"

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		NewsAPI: NewsAPIConfig{
			HTTPConfig: HTTPConfig{Timeout: 10 * time.Second, UserAgent: defaultUserAgent},
			BaseURL:    "https://newsapi.org/v2/everything",
			Language:   "en",
		},
		Feeds: FeedsConfig{
			HTTPConfig:  HTTPConfig{Timeout: 7 * time.Second, UserAgent: defaultUserAgent},
			Concurrency: 4,
			MaxItems:    50,
			Outlets: map[string][]string{
				"apnews.com":          {"https://apnews.com/hub/good-news/rss"},
				"bbc.co.uk":           {"https://feeds.bbci.co.uk/news/rss.xml"},
				"theguardian.com":     {"https://www.theguardian.com/world/rss"},
				"npr.org":             {"https://feeds.npr.org/1001/rss.xml"},
				"positive.news":       {"https://www.positive.news/feed/"},
				"goodnewsnetwork.org": {"https://www.goodnewsnetwork.org/feed/"},
			},
		},
		Summarize: SummarizeConfig{
			AIConfig: AIConfig{
				Model:   "command-r",
				Timeout: 15 * time.Second,
			},
			Concurrency:     3,
			RetryDelays:     []time.Duration{500 * time.Millisecond, 2 * time.Second, 5 * time.Second},
			MaxInputChars:   8000,
			MaxSummaryChars: 800,
		},
		Store: StoreConfig{
			Driver:        StoreSQLite,
			DataDir:       "data",
			MongoDatabase: "goodnews",
			BatchSize:     50,
		},
		Cache: CacheConfig{
			Retention: 30 * 24 * time.Hour,
		},
		Publish: PublishConfig{
			Subject: "goodnews.stories.published",
		},
		Pipeline: PipelineConfig{
			Topics: []string{
				"breakthrough OR cure",
				"wage increase OR union",
				"renewable energy record",
				"volunteers community",
				"conservation success",
				"scientific discovery",
				"school access scholarship",
			},
			Domains: []string{
				"apnews.com",
				"bbc.co.uk",
				"theguardian.com",
				"npr.org",
				"positive.news",
				"goodnewsnetwork.org",
			},
			SortBy: "publishedAt",
			Light:  ModeConfig{Window: 12 * time.Hour, PageSize: 20, MaxPages: 1},
			Full:   ModeConfig{Window: 72 * time.Hour, PageSize: 100, MaxPages: 3},
		},
		Maintenance: MaintenanceConfig{
			TrendingWindow: 48 * time.Hour,
			TrendingLimit:  10,
			StoryRetention: 30 * 24 * time.Hour,
		},
	}
}
