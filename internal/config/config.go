// Package config defines the top-level configuration for the dislocation
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by NEWSGAP_* environment variables.
type Config struct {
	News       NewsConfig       `toml:"news"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Scan       ScanConfig       `toml:"scan"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// NewsConfig lists the headline sources. APIURL is a JSON news endpoint;
// Feeds are RSS/Atom URLs. Both may be set.
type NewsConfig struct {
	APIURL        string   `toml:"api_url"`
	APIKey        string   `toml:"api_key"`
	Feeds         []string `toml:"feeds"`
	MaxItems      int      `toml:"max_items"`
	FeedMaxItems  int      `toml:"feed_max_items"`
	Timeout       duration `toml:"timeout"`
	RatePerSecond float64  `toml:"rate_per_second"`
	// Extra lexicon words for the RSS headline labeler.
	BullishWords []string `toml:"bullish_words"`
	BearishWords []string `toml:"bearish_words"`
}

// PolymarketConfig holds the Gamma API endpoint and event query.
type PolymarketConfig struct {
	Enabled    bool   `toml:"enabled"`
	GammaHost  string `toml:"gamma_host"`
	EventLimit int    `toml:"event_limit"`
	TagSlug    string `toml:"tag_slug"`
}

// KalshiConfig holds Kalshi exchange API credentials. Public market data
// does not need a key.
type KalshiConfig struct {
	Enabled           bool   `toml:"enabled"`
	ApiKey            string `toml:"api_key"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	BaseURL           string `toml:"base_url"`
	EventLimit        int    `toml:"event_limit"`
}

// ScanConfig tunes the scan loop and its sinks.
type ScanConfig struct {
	Interval           duration `toml:"interval"`
	FetchTimeout       duration `toml:"fetch_timeout"`
	LockTTL            duration `toml:"lock_ttl"`
	ResultTTL          duration `toml:"result_ttl"`
	AlertTTL           duration `toml:"alert_ttl"`
	VenueRatePerSecond float64  `toml:"venue_rate_per_second"`
	StreamMaxLen       int64    `toml:"stream_max_len"`
	// ReplayPath is the snapshot replayed in replay mode.
	ReplayPath string `toml:"replay_path"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	KeyPrefix      string `toml:"key_prefix"`
}

// ArchiveConfig controls the cold-storage pass for old runs.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Cron          string `toml:"cron"`
	DeleteAfter   bool   `toml:"delete_after"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		News: NewsConfig{
			MaxItems:      200,
			FeedMaxItems:  50,
			Timeout:       duration{15 * time.Second},
			RatePerSecond: 2,
		},
		Polymarket: PolymarketConfig{
			Enabled:    true,
			GammaHost:  "https://gamma-api.polymarket.com",
			EventLimit: 100,
		},
		Kalshi: KalshiConfig{
			Enabled:    false,
			BaseURL:    "https://api.elections.kalshi.com/trade-api/v2",
			EventLimit: 100,
		},
		Scan: ScanConfig{
			Interval:           duration{5 * time.Minute},
			FetchTimeout:       duration{30 * time.Second},
			LockTTL:            duration{2 * time.Minute},
			ResultTTL:          duration{30 * time.Minute},
			AlertTTL:           duration{6 * time.Hour},
			VenueRatePerSecond: 1,
			StreamMaxLen:       1000,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "newsgap",
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "newsgap-data",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Cron:          "0 3 1 * *",
			DeleteAfter:   true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"dislocation_high", "scan_failed"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
	"replay":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validEvents enumerates the notification events the engine emits.
var validEvents = map[string]bool{
	"dislocation_high": true,
	"scan_failed":      true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	// Mode
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor, replay, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Sources are not needed to replay a stored snapshot.
	if mode != "replay" {
		if strings.TrimSpace(c.News.APIURL) == "" && len(c.News.Feeds) == 0 {
			errs = append(errs, "news: set api_url or at least one feed")
		}
		if !c.Polymarket.Enabled && !c.Kalshi.Enabled {
			errs = append(errs, "markets: enable polymarket or kalshi")
		}
	}
	if c.News.MaxItems < 0 {
		errs = append(errs, "news: max_items must be >= 0")
	}
	if c.News.RatePerSecond < 0 {
		errs = append(errs, "news: rate_per_second must be >= 0")
	}

	// Venues
	if c.Polymarket.Enabled {
		if c.Polymarket.GammaHost == "" {
			errs = append(errs, "polymarket: gamma_host must not be empty")
		}
		if c.Polymarket.EventLimit < 1 {
			errs = append(errs, "polymarket: event_limit must be >= 1")
		}
	}
	if c.Kalshi.Enabled {
		if c.Kalshi.BaseURL == "" {
			errs = append(errs, "kalshi: base_url must not be empty")
		}
		if c.Kalshi.RsaPrivateKeyPath != "" && c.Kalshi.ApiKey == "" {
			errs = append(errs, "kalshi: api_key is required when rsa_private_key_path is set")
		}
	}

	// Scan
	if (mode == "monitor" || mode == "full") && c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0")
	}
	if c.Scan.FetchTimeout.Duration < 0 {
		errs = append(errs, "scan: fetch_timeout must be >= 0")
	}
	if c.Scan.VenueRatePerSecond < 0 {
		errs = append(errs, "scan: venue_rate_per_second must be >= 0")
	}
	if mode == "replay" {
		if strings.TrimSpace(c.Scan.ReplayPath) == "" {
			errs = append(errs, "scan: replay_path is required for mode replay")
		}
		if !c.S3.Enabled {
			errs = append(errs, "s3: must be enabled for mode replay")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if !c.Postgres.Enabled || !c.S3.Enabled {
			errs = append(errs, "archive: requires postgres and s3 to be enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if len(strings.Fields(c.Archive.Cron)) != 5 {
			errs = append(errs, fmt.Sprintf("archive: cron must have 5 fields, got %q", c.Archive.Cron))
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	// Notify
	for _, ev := range c.Notify.Events {
		if !validEvents[ev] {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q (valid: dislocation_high, scan_failed)", ev))
		}
	}
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
