package model

import "time"

// Config is the complete engine configuration
type Config struct {
	HTTP         HTTPConfig        `mapstructure:"http" yaml:"http"`
	Browser      BrowserConfig     `mapstructure:"browser" yaml:"browser"`
	Crawl        CrawlConfig       `mapstructure:"crawl" yaml:"crawl"`
	Extraction   ExtractionConfig  `mapstructure:"extraction" yaml:"extraction"`
	RateLimiting RateLimitConfig   `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Resilience   ResilienceConfig  `mapstructure:"resilience" yaml:"resilience"`
	Cache        CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Concurrency  ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Classifier   ClassifierConfig  `mapstructure:"classifier" yaml:"classifier"`
	Store        StoreConfig       `mapstructure:"store" yaml:"store"`
	Logging      LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Lexicon      LexiconConfig     `mapstructure:"lexicon" yaml:"lexicon"`
	Website      WebsiteConfig     `mapstructure:"website" yaml:"website"`
}

// HTTPConfig configures the plain HTTP fetcher
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxRedirects int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	InsecureTLS  bool          `mapstructure:"insecure_tls" yaml:"insecure_tls"`
	HTTPProxy    string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy      string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// BrowserConfig configures rod-driven sessions. Disabled means HTTP-only extraction.
type BrowserConfig struct {
	Enabled          bool          `mapstructure:"enabled" yaml:"enabled"`
	RemoteURL        string        `mapstructure:"remote_url" yaml:"remote_url,omitempty"`
	Headless         bool          `mapstructure:"headless" yaml:"headless"`
	Stealth          bool          `mapstructure:"stealth" yaml:"stealth"`
	MaxSessions      int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	NavigateTimeout  time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
	CommandTimeout   time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	SettleDelay      time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	ResourceBlocking []string      `mapstructure:"resource_blocking" yaml:"resource_blocking"`
}

// CrawlConfig bounds the fact crawl
type CrawlConfig struct {
	PageBudget           int     `mapstructure:"page_budget" yaml:"page_budget"`
	MaxDepth             int     `mapstructure:"max_depth" yaml:"max_depth"`
	MaxSitemapURLs       int     `mapstructure:"max_sitemap_urls" yaml:"max_sitemap_urls"`
	MinPageScore         float64 `mapstructure:"min_page_score" yaml:"min_page_score"`
	ConfidenceScale      float64 `mapstructure:"confidence_scale" yaml:"confidence_scale"`
	SiteFailureThreshold int     `mapstructure:"site_failure_threshold" yaml:"site_failure_threshold"`
	SameHostOnly         bool    `mapstructure:"same_host_only" yaml:"same_host_only"`
}

// ExtractionConfig bounds the directory strategies
type ExtractionConfig struct {
	MaxSearchPages    int    `mapstructure:"max_search_pages" yaml:"max_search_pages"`
	SearchQuery       string `mapstructure:"search_query" yaml:"search_query"`
	FollowDetailPages bool   `mapstructure:"follow_detail_pages" yaml:"follow_detail_pages"`
	MaxDetailPages    int    `mapstructure:"max_detail_pages" yaml:"max_detail_pages"`
	MaxMapMarkers     int    `mapstructure:"max_map_markers" yaml:"max_map_markers"`
	HoverPenalty      int    `mapstructure:"hover_penalty" yaml:"hover_penalty"`
}

// RateLimitConfig is the per-host token bucket
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
	RespectRobots     bool    `mapstructure:"respect_robots" yaml:"respect_robots"`
	// HostRates overrides RequestsPerSecond per host ("diocese.org": 0.5)
	HostRates map[string]float64 `mapstructure:"host_rates" yaml:"host_rates,omitempty"`
}

// ResilienceConfig configures retry and circuit breaking around fetches
type ResilienceConfig struct {
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialBackoff   time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
	FailureThreshold int           `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout" yaml:"open_timeout"`
}

// CacheConfig configures the fetched-page cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// ConcurrencyConfig sizes the worker pool
type ConcurrencyConfig struct {
	Workers   int `mapstructure:"workers" yaml:"workers"`
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// ClassifierConfig configures the optional content classifier port
type ClassifierConfig struct {
	Provider      string  `mapstructure:"provider" yaml:"provider"` // openai, anthropic, ollama, "" = disabled
	Model         string  `mapstructure:"model" yaml:"model"`
	APIKey        string  `mapstructure:"api_key" yaml:"-"`
	BaseURL       string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Timeout       int     `mapstructure:"timeout" yaml:"timeout"` // seconds
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
}

// StoreConfig configures the sink
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // empty = discard
}

// LoggingConfig configures zap
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// LexiconConfig points at an optional YAML rules file
type LexiconConfig struct {
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file,omitempty"`
}

// WebsiteConfig controls the pre-check run before a fact crawl
type WebsiteConfig struct {
	Check             bool          `mapstructure:"check" yaml:"check"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	AggregatorDomains []string      `mapstructure:"aggregator_domains" yaml:"aggregator_domains"`
	SocialDomains     []string      `mapstructure:"social_domains" yaml:"social_domains"`
	// DomainMap pins a host to a class ("owned", "social", "aggregator")
	DomainMap map[string]string `mapstructure:"domain_map" yaml:"domain_map,omitempty"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      20 * time.Second,
			UserAgent:    "Parishscope/0.3 (+https://github.com/ppiankov/parishscope)",
			MaxBodyBytes: 4_000_000,
			MaxRedirects: 5,
		},
		Browser: BrowserConfig{
			Enabled:          false,
			Headless:         true,
			Stealth:          true,
			MaxSessions:      4,
			NavigateTimeout:  30 * time.Second,
			CommandTimeout:   10 * time.Second,
			SettleDelay:      750 * time.Millisecond,
			ResourceBlocking: []string{"images", "fonts", "media"},
		},
		Crawl: CrawlConfig{
			PageBudget:           100,
			MaxDepth:             4,
			MaxSitemapURLs:       500,
			MinPageScore:         6,
			ConfidenceScale:      20,
			SiteFailureThreshold: 3,
			SameHostOnly:         true,
		},
		Extraction: ExtractionConfig{
			MaxSearchPages:    25,
			SearchQuery:       "",
			FollowDetailPages: true,
			MaxDetailPages:    200,
			MaxMapMarkers:     500,
			HoverPenalty:      10,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
			RespectRobots:     true,
		},
		Resilience: ResilienceConfig{
			MaxRetries:       2,
			InitialBackoff:   500 * time.Millisecond,
			MaxBackoff:       8 * time.Second,
			FailureThreshold: 5,
			OpenTimeout:      2 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".parishscope-cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers:   4,
			QueueSize: 8,
		},
		Classifier: ClassifierConfig{
			Timeout:       30,
			MinConfidence: 0.6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Website: WebsiteConfig{
			Check:   true,
			Timeout: 10 * time.Second,
			AggregatorDomains: []string{
				"parishesonline.com", "ecatholic.com", "masstimes.org", "catholicdirectory.org",
				"thecatholicdirectory.com", "discovermass.com", "yelp.com", "yellowpages.com",
				"mapquest.com", "findagrave.com", "wikipedia.org",
			},
			SocialDomains: []string{
				"facebook.com", "instagram.com", "twitter.com", "x.com", "youtube.com",
				"linkedin.com", "flocknote.com", "tiktok.com",
			},
		},
	}
}
