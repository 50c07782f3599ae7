package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.News.Feeds = []string{"https://example.com/rss"}
	return cfg
}

func TestDefaultsNeedANewsSource(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "news: set api_url") {
		t.Fatalf("Validate() = %v, want news source error", err)
	}

	cfg = validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "trade" }, `unknown mode "trade"`},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log_level"},
		{"no venues", func(c *Config) { c.Polymarket.Enabled = false }, "markets: enable polymarket or kalshi"},
		{"zero interval", func(c *Config) { c.Scan.Interval = duration{} }, "scan: interval must be > 0"},
		{"replay without path", func(c *Config) { c.Mode = "replay"; c.S3.Enabled = true }, "replay_path is required"},
		{"replay without s3", func(c *Config) { c.Mode = "replay"; c.Scan.ReplayPath = "snapshots/x.json" }, "s3: must be enabled"},
		{"postgres pool", func(c *Config) { c.Postgres.Enabled = true; c.Postgres.PoolMinConns = 20 }, "pool_min_conns must not exceed"},
		{"archive needs stores", func(c *Config) { c.Archive.Enabled = true }, "archive: requires postgres and s3"},
		{"archive cron", func(c *Config) {
			c.Archive.Enabled, c.Postgres.Enabled, c.S3.Enabled = true, true, true
			c.Archive.Cron = "daily"
		}, "cron must have 5 fields"},
		{"server port", func(c *Config) { c.Server.Port = 70000 }, "server: port must be 1-65535"},
		{"notify event", func(c *Config) { c.Notify.Events = []string{"order_filled"} }, `unknown event "order_filled"`},
		{"telegram pair", func(c *Config) { c.Notify.TelegramToken = "t" }, "must be set together"},
		{"kalshi key", func(c *Config) {
			c.Kalshi.Enabled = true
			c.Kalshi.RsaPrivateKeyPath = "/keys/kalshi.pem"
		}, "kalshi: api_key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestValidateReplaySkipsSources(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.Polymarket.Enabled = false
	cfg.S3.Enabled = true
	cfg.Scan.ReplayPath = "snapshots/2026/01/15/run-1.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "nope"
	cfg.LogLevel = "nope"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	if got := strings.Count(err.Error(), "\n  - "); got < 3 {
		t.Errorf("got %d problems, want at least 3:\n%s", got, err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "full"

[news]
feeds = ["https://a.example/rss", "https://b.example/atom"]

[scan]
interval = "90s"

[kalshi]
enabled = true
event_limit = 25
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "full" {
		t.Errorf("Mode = %q, want full", cfg.Mode)
	}
	if len(cfg.News.Feeds) != 2 {
		t.Errorf("Feeds = %v, want 2 entries", cfg.News.Feeds)
	}
	if cfg.Scan.Interval.Duration != 90*time.Second {
		t.Errorf("Interval = %v, want 90s", cfg.Scan.Interval.Duration)
	}
	if !cfg.Kalshi.Enabled || cfg.Kalshi.EventLimit != 25 {
		t.Errorf("Kalshi = %+v", cfg.Kalshi)
	}
	// Untouched sections keep their defaults.
	if cfg.Polymarket.GammaHost != "https://gamma-api.polymarket.com" {
		t.Errorf("GammaHost = %q", cfg.Polymarket.GammaHost)
	}
	if cfg.Scan.LockTTL.Duration != 2*time.Minute {
		t.Errorf("LockTTL = %v, want 2m", cfg.Scan.LockTTL.Duration)
	}
}

func TestLoadBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("mode = "), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil error, want decode error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load() of missing file = nil error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NEWSGAP_MODE", "scan")
	t.Setenv("NEWSGAP_NEWS_FEEDS", "https://a.example/rss, ,https://b.example/rss")
	t.Setenv("NEWSGAP_SCAN_INTERVAL", "45s")
	t.Setenv("NEWSGAP_SCAN_STREAM_MAX_LEN", "250")
	t.Setenv("NEWSGAP_REDIS_ENABLED", "true")
	t.Setenv("NEWSGAP_SERVER_PORT", "not-a-number")
	t.Setenv("NEWSGAP_NEWS_RATE_PER_SECOND", "0.5")
	t.Setenv("DATABASE_URL", "postgres://alias")
	t.Setenv("NEWSGAP_POSTGRES_DSN", "postgres://primary")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "scan" {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	want := []string{"https://a.example/rss", "https://b.example/rss"}
	if len(cfg.News.Feeds) != 2 || cfg.News.Feeds[0] != want[0] || cfg.News.Feeds[1] != want[1] {
		t.Errorf("Feeds = %v, want %v", cfg.News.Feeds, want)
	}
	if cfg.Scan.Interval.Duration != 45*time.Second {
		t.Errorf("Interval = %v", cfg.Scan.Interval.Duration)
	}
	if cfg.Scan.StreamMaxLen != 250 {
		t.Errorf("StreamMaxLen = %d", cfg.Scan.StreamMaxLen)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled = false, want true")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, unparsable override should keep the default", cfg.Server.Port)
	}
	if cfg.News.RatePerSecond != 0.5 {
		t.Errorf("RatePerSecond = %v", cfg.News.RatePerSecond)
	}
	if cfg.Postgres.DSN != "postgres://primary" {
		t.Errorf("DSN = %q, NEWSGAP_POSTGRES_DSN should win over DATABASE_URL", cfg.Postgres.DSN)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.News.APIKey = "news-key"
	cfg.Postgres.Password = "pg"
	cfg.S3.SecretKey = "s3"
	cfg.Server.APIKey = "api"
	cfg.Notify.TelegramToken = "tg"

	out := RedactedConfig(&cfg)
	for name, got := range map[string]string{
		"news.api_key":          out.News.APIKey,
		"postgres.password":     out.Postgres.Password,
		"s3.secret_key":         out.S3.SecretKey,
		"server.api_key":        out.Server.APIKey,
		"notify.telegram_token": out.Notify.TelegramToken,
	} {
		if got != redacted {
			t.Errorf("%s = %q, want %q", name, got, redacted)
		}
	}
	if out.Redis.Password != "" {
		t.Errorf("empty secret should stay empty, got %q", out.Redis.Password)
	}
	if cfg.News.APIKey != "news-key" {
		t.Error("original config was mutated")
	}

	out.News.Feeds[0] = "changed"
	if cfg.News.Feeds[0] == "changed" {
		t.Error("redacted copy shares the feeds slice with the original")
	}
}
