package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NEWSGAP_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NEWSGAP_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── News ──
	setStr(&cfg.News.APIURL, "NEWSGAP_NEWS_API_URL")
	setStr(&cfg.News.APIKey, "NEWSGAP_NEWS_API_KEY")
	setStringSlice(&cfg.News.Feeds, "NEWSGAP_NEWS_FEEDS")
	setInt(&cfg.News.MaxItems, "NEWSGAP_NEWS_MAX_ITEMS")
	setInt(&cfg.News.FeedMaxItems, "NEWSGAP_NEWS_FEED_MAX_ITEMS")
	setDuration(&cfg.News.Timeout, "NEWSGAP_NEWS_TIMEOUT")
	setFloat64(&cfg.News.RatePerSecond, "NEWSGAP_NEWS_RATE_PER_SECOND")

	// ── Polymarket ──
	setBool(&cfg.Polymarket.Enabled, "NEWSGAP_POLYMARKET_ENABLED")
	setStr(&cfg.Polymarket.GammaHost, "NEWSGAP_POLYMARKET_GAMMA_HOST")
	setInt(&cfg.Polymarket.EventLimit, "NEWSGAP_POLYMARKET_EVENT_LIMIT")
	setStr(&cfg.Polymarket.TagSlug, "NEWSGAP_POLYMARKET_TAG_SLUG")

	// ── Kalshi ──
	setBool(&cfg.Kalshi.Enabled, "NEWSGAP_KALSHI_ENABLED")
	setStr(&cfg.Kalshi.ApiKey, "NEWSGAP_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "NEWSGAP_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "NEWSGAP_KALSHI_BASE_URL")
	setInt(&cfg.Kalshi.EventLimit, "NEWSGAP_KALSHI_EVENT_LIMIT")

	// ── Scan ──
	setDuration(&cfg.Scan.Interval, "NEWSGAP_SCAN_INTERVAL")
	setDuration(&cfg.Scan.FetchTimeout, "NEWSGAP_SCAN_FETCH_TIMEOUT")
	setDuration(&cfg.Scan.LockTTL, "NEWSGAP_SCAN_LOCK_TTL")
	setDuration(&cfg.Scan.ResultTTL, "NEWSGAP_SCAN_RESULT_TTL")
	setDuration(&cfg.Scan.AlertTTL, "NEWSGAP_SCAN_ALERT_TTL")
	setFloat64(&cfg.Scan.VenueRatePerSecond, "NEWSGAP_SCAN_VENUE_RATE_PER_SECOND")
	setInt64(&cfg.Scan.StreamMaxLen, "NEWSGAP_SCAN_STREAM_MAX_LEN")
	setStr(&cfg.Scan.ReplayPath, "NEWSGAP_SCAN_REPLAY_PATH")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "NEWSGAP_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.DSN, "NEWSGAP_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "NEWSGAP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NEWSGAP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NEWSGAP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NEWSGAP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NEWSGAP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NEWSGAP_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "NEWSGAP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "NEWSGAP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "NEWSGAP_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "NEWSGAP_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "NEWSGAP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NEWSGAP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NEWSGAP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NEWSGAP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NEWSGAP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NEWSGAP_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "NEWSGAP_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "NEWSGAP_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "NEWSGAP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "NEWSGAP_S3_REGION")
	setStr(&cfg.S3.Bucket, "NEWSGAP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "NEWSGAP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "NEWSGAP_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "NEWSGAP_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "NEWSGAP_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.KeyPrefix, "NEWSGAP_S3_KEY_PREFIX")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "NEWSGAP_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "NEWSGAP_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Cron, "NEWSGAP_ARCHIVE_CRON")
	setBool(&cfg.Archive.DeleteAfter, "NEWSGAP_ARCHIVE_DELETE_AFTER")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "NEWSGAP_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "NEWSGAP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "NEWSGAP_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "NEWSGAP_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "NEWSGAP_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "NEWSGAP_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NEWSGAP_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NEWSGAP_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NEWSGAP_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NEWSGAP_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "NEWSGAP_MODE")
	setStr(&cfg.LogLevel, "NEWSGAP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
