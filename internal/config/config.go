package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Scan     ScanConfig     `yaml:"scan"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Sources  SourcesConfig  `yaml:"sources"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Server   ServerConfig   `yaml:"server"`
	Filter   FilterConfig   `yaml:"filter"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScanConfig holds the detection knobs.
type ScanConfig struct {
	// Threshold is the minimum momentum score to keep an event
	// (2.0 = twice the baseline rate).
	Threshold float64 `yaml:"threshold"`
	// Hours is the recency and clustering window width.
	Hours int `yaml:"hours"`
	// Analyze is how many top clusters go to the analyst.
	Analyze int `yaml:"analyze"`
	// SourceTimeout and ScanTimeout bound the fetch phase.
	SourceTimeout string `yaml:"source_timeout"`
	ScanTimeout   string `yaml:"scan_timeout"`
	// MaxCoordination caps the cross-platform score multiplier.
	MaxCoordination float64 `yaml:"max_coordination"`
	// BaselineFloors substitute for missing history, per source,
	// in events per hour.
	BaselineFloors map[string]float64 `yaml:"baseline_floors"`
}

// Window returns the scan window as a duration.
func (s ScanConfig) Window() time.Duration {
	return time.Duration(s.Hours) * time.Hour
}

// ParseSourceTimeout returns the per-source fetch timeout.
func (s ScanConfig) ParseSourceTimeout() time.Duration {
	d, err := time.ParseDuration(s.SourceTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// ParseScanTimeout returns the overall fetch deadline.
func (s ScanConfig) ParseScanTimeout() time.Duration {
	d, err := time.ParseDuration(s.ScanTimeout)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ScheduleConfig configures the daemon scan interval.
type ScheduleConfig struct {
	ScanInterval string `yaml:"scan_interval"`
}

// ParseScanInterval returns the scan interval as time.Duration.
func (s ScheduleConfig) ParseScanInterval() time.Duration {
	d, err := time.ParseDuration(s.ScanInterval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

// SourcesConfig holds configuration for all platform collectors.
type SourcesConfig struct {
	Reddit       RedditConfig       `yaml:"reddit"`
	StockTwits   StockTwitsConfig   `yaml:"stocktwits"`
	FourChan     FourChanConfig     `yaml:"fourchan"`
	InvestorsHub InvestorsHubConfig `yaml:"investorshub"`
	BitcoinTalk  BitcoinTalkConfig  `yaml:"bitcointalk"`
	News         NewsConfig         `yaml:"news"`
}

// RedditConfig for the Reddit collector.
type RedditConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Subreddits   []string `yaml:"subreddits"`
}

// StockTwitsConfig for the StockTwits collector.
type StockTwitsConfig struct {
	Enabled       bool `yaml:"enabled"`
	TrendingLimit int  `yaml:"trending_limit"`
	StreamLimit   int  `yaml:"stream_limit"`
}

// FourChanConfig for the 4chan collector.
type FourChanConfig struct {
	Enabled bool   `yaml:"enabled"`
	Board   string `yaml:"board"`
}

// InvestorsHubConfig for the InvestorsHub collector.
type InvestorsHubConfig struct {
	Enabled bool `yaml:"enabled"`
}

// BitcoinTalkConfig for the BitcoinTalk collector.
type BitcoinTalkConfig struct {
	Enabled bool  `yaml:"enabled"`
	Boards  []int `yaml:"boards"`
}

// NewsConfig for the finance RSS collector.
type NewsConfig struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []FeedItem `yaml:"feeds"`
}

// FeedItem is a single RSS feed entry.
type FeedItem struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// AnalysisConfig configures the LLM analyst.
type AnalysisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // "openai", "anthropic" or "openrouter"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	// MinPumpProbability gates alerts on the analyst's verdict (0-100).
	MinPumpProbability int           `yaml:"min_pump_probability"`
	Slack              SlackConfig   `yaml:"slack"`
	Discord            DiscordConfig `yaml:"discord"`
	Webhook            WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// FilterConfig configures the keyword filter applied to noisy sources.
type FilterConfig struct {
	ExtraKeywords   []string `yaml:"extra_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./pumpradar.db"},
		Scan: ScanConfig{
			Threshold:       2.0,
			Hours:           6,
			Analyze:         5,
			SourceTimeout:   "60s",
			ScanTimeout:     "5m",
			MaxCoordination: 3.0,
		},
		Schedule: ScheduleConfig{ScanInterval: "15m"},
		Sources: SourcesConfig{
			Reddit: RedditConfig{
				Enabled: false,
				Subreddits: []string{
					"wallstreetbets", "pennystocks", "stocks", "StockMarket",
					"Shortsqueeze", "smallstreetbets", "CryptoMoonShots",
					"CryptoCurrency", "SatoshiStreetBets",
				},
			},
			StockTwits:   StockTwitsConfig{Enabled: true, TrendingLimit: 10, StreamLimit: 30},
			FourChan:     FourChanConfig{Enabled: true, Board: "biz"},
			InvestorsHub: InvestorsHubConfig{Enabled: false},
			BitcoinTalk:  BitcoinTalkConfig{Enabled: false},
			News: NewsConfig{
				Enabled: true,
				Feeds: []FeedItem{
					{Name: "CNBC Markets", URL: "https://www.cnbc.com/id/20910258/device/rss/rss.html"},
					{Name: "MarketWatch", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
					{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/"},
				},
			},
		},
		Analysis: AnalysisConfig{
			Provider: "openrouter",
			Model:    "anthropic/claude-3.5-sonnet",
		},
		Alerts: AlertsConfig{MinPumpProbability: 70},
		Server: ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate rejects parameter values a scan must not start with.
func (c *Config) Validate() error {
	if c.Scan.Threshold < 0 {
		return fmt.Errorf("scan.threshold %.2f must not be negative", c.Scan.Threshold)
	}
	if c.Scan.Hours <= 0 {
		return fmt.Errorf("scan.hours %d must be positive", c.Scan.Hours)
	}
	if c.Scan.Analyze < 0 {
		return fmt.Errorf("scan.analyze %d must not be negative", c.Scan.Analyze)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PUMPRADAR_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REDDIT_CLIENT_ID"); v != "" {
		cfg.Sources.Reddit.ClientID = v
		cfg.Sources.Reddit.Enabled = true
	}
	if v := os.Getenv("REDDIT_CLIENT_SECRET"); v != "" {
		cfg.Sources.Reddit.ClientSecret = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.Analysis.APIKey = v
		cfg.Analysis.Enabled = true
		cfg.Analysis.Provider = "openrouter"
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Analysis.APIKey = v
		cfg.Analysis.Enabled = true
		cfg.Analysis.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Analysis.APIKey = v
		cfg.Analysis.Enabled = true
		cfg.Analysis.Provider = "anthropic"
	}
}
