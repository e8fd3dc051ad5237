package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const defaultFeedSources = "ynet=https://www.ynet.co.il/Integration/StoryRss1854.xml," +
	"maariv=https://www.maariv.co.il/Rss/RssFeedsMivzakiChadashot," +
	"walla=https://rss.walla.co.il/feed/22"

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMinConns  int32  `envconfig:"NA_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NA_DB_MAX_CONNS" default:"8"`

	FeedSources    string        `envconfig:"FEED_SOURCES" default:""`
	FeedTimeout    time.Duration `envconfig:"FEED_TIMEOUT" default:"20s"`
	FetchInterval  time.Duration `envconfig:"FETCH_INTERVAL" default:"2m"`
	LookbackWindow time.Duration `envconfig:"LOOKBACK_WINDOW" default:"24h"`

	ClassifierProvider   string        `envconfig:"CLASSIFIER_PROVIDER" default:"keyword"`
	ClassifierEndpoint   string        `envconfig:"CLASSIFIER_ENDPOINT" default:""`
	ClassifierModel      string        `envconfig:"CLASSIFIER_MODEL" default:""`
	ClassifierAPIKey     string        `envconfig:"CLASSIFIER_API_KEY" default:""`
	ClassifierTimeout    time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"30s"`
	ClassifierBatchSize  int           `envconfig:"CLASSIFIER_BATCH_SIZE" default:"5"`
	ClassifierBatchDelay time.Duration `envconfig:"CLASSIFIER_BATCH_DELAY" default:"2s"`

	DedupHighThreshold   float64 `envconfig:"DEDUP_HIGH_THRESHOLD" default:"0.85"`
	DedupMediumThreshold float64 `envconfig:"DEDUP_MEDIUM_THRESHOLD" default:"0.6"`

	MatchMinSubstringLength int    `envconfig:"MATCH_MIN_SUBSTRING_LENGTH" default:"3"`
	MatchBidirectional      bool   `envconfig:"MATCH_BIDIRECTIONAL" default:"false"`
	LocationTablesFile      string `envconfig:"LOCATION_TABLES_FILE" default:""`

	NATSURL           string `envconfig:"NATS_URL" default:""`
	NATSAlertSubject  string `envconfig:"NATS_ALERT_SUBJECT" default:"alerts.new"`
	NATSNotifySubject string `envconfig:"NATS_NOTIFY_SUBJECT" default:"alerts.notify"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

// FeedSource is one named RSS endpoint.
type FeedSource struct {
	Name string
	URL  string
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("NA_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NA_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NA_DB_MIN_CONNS (%d) cannot exceed NA_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be > 0")
	}
	if c.FetchInterval <= 0 {
		return fmt.Errorf("FETCH_INTERVAL must be > 0")
	}
	if c.LookbackWindow <= 0 {
		return fmt.Errorf("LOOKBACK_WINDOW must be > 0")
	}
	if _, err := c.FeedSourceList(); err != nil {
		return err
	}

	switch c.ClassifierProviderName() {
	case "keyword", "openai", "anthropic":
	default:
		return fmt.Errorf("CLASSIFIER_PROVIDER must be one of keyword, openai, anthropic (got %q)", c.ClassifierProvider)
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT must be > 0")
	}
	if c.ClassifierBatchSize < 1 {
		return fmt.Errorf("CLASSIFIER_BATCH_SIZE must be >= 1")
	}
	if c.ClassifierBatchDelay < 0 {
		return fmt.Errorf("CLASSIFIER_BATCH_DELAY must be >= 0")
	}

	if c.DedupHighThreshold <= 0 || c.DedupHighThreshold > 1 {
		return fmt.Errorf("DEDUP_HIGH_THRESHOLD must be in (0,1]")
	}
	if c.DedupMediumThreshold <= 0 || c.DedupMediumThreshold > c.DedupHighThreshold {
		return fmt.Errorf("DEDUP_MEDIUM_THRESHOLD must be in (0,DEDUP_HIGH_THRESHOLD]")
	}
	if c.MatchMinSubstringLength < 1 {
		return fmt.Errorf("MATCH_MIN_SUBSTRING_LENGTH must be >= 1")
	}

	if strings.TrimSpace(c.NATSURL) != "" {
		if strings.TrimSpace(c.NATSAlertSubject) == "" {
			return fmt.Errorf("NATS_ALERT_SUBJECT is required when NATS_URL is set")
		}
		if strings.TrimSpace(c.NATSNotifySubject) == "" {
			return fmt.Errorf("NATS_NOTIFY_SUBJECT is required when NATS_URL is set")
		}
	}
	return nil
}

// RequireDatabase is checked by commands that open the pool.
func (c *Config) RequireDatabase() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func (c *Config) ClassifierProviderName() string {
	return strings.ToLower(strings.TrimSpace(c.ClassifierProvider))
}

// FeedSourceList parses FEED_SOURCES ("name=url,name=url"). An empty value
// yields the built-in sources.
func (c *Config) FeedSourceList() ([]FeedSource, error) {
	raw := strings.TrimSpace(c.FeedSources)
	if raw == "" {
		raw = defaultFeedSources
	}

	parts := strings.Split(raw, ",")
	sources := make([]FeedSource, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rawURL, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		rawURL = strings.TrimSpace(rawURL)
		if !ok || name == "" || rawURL == "" {
			return nil, fmt.Errorf("FEED_SOURCES entry %q must be name=url", part)
		}
		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("FEED_SOURCES entry %q has invalid url", part)
		}
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("FEED_SOURCES has duplicate source name %q", name)
		}
		seen[name] = struct{}{}
		sources = append(sources, FeedSource{Name: name, URL: rawURL})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("FEED_SOURCES must contain at least one source")
	}
	return sources, nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
