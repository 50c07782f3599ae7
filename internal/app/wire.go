package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	s3blob "github.com/alanyoungcy/newsgap/internal/blob/s3"
	"github.com/alanyoungcy/newsgap/internal/cache/memory"
	"github.com/alanyoungcy/newsgap/internal/cache/redis"
	"github.com/alanyoungcy/newsgap/internal/config"
	"github.com/alanyoungcy/newsgap/internal/domain"
	"github.com/alanyoungcy/newsgap/internal/news"
	"github.com/alanyoungcy/newsgap/internal/notify"
	"github.com/alanyoungcy/newsgap/internal/platform"
	"github.com/alanyoungcy/newsgap/internal/platform/kalshi"
	"github.com/alanyoungcy/newsgap/internal/platform/polymarket"
	"github.com/alanyoungcy/newsgap/internal/server/handler"
	"github.com/alanyoungcy/newsgap/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need. Optional collaborators stay nil when their section is
// disabled, so they can be handed straight to constructors that skip nil
// sinks.
type Dependencies struct {
	// Sources
	News    domain.NewsSource
	Markets domain.MarketSource

	// Stores
	Runs  domain.RunStore
	Audit domain.AuditStore

	// Caches
	Cache       domain.ResultCache
	Bus         domain.SignalBus
	Lock        domain.LockManager
	RateLimiter domain.RateLimiter
	Deduper     domain.Deduper

	// Blob storage
	Snapshots *s3blob.SnapshotStore
	Archiver  domain.Archiver

	// Notifications
	Notifier *notify.Notifier

	// HealthChecks probes every wired backend for /api/health.
	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{HealthChecks: map[string]handler.HealthCheck{}}

	// --- Sources (replay reads everything from the snapshot) ---
	if cfg.Mode != "replay" {
		newsSource, err := buildNewsSource(cfg.News, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: news: %w", err)
		}
		deps.News = newsSource

		markets, err := buildMarketSource(cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: markets: %w", err)
		}
		deps.Markets = markets
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			applied, err := pgClient.RunMigrations(ctx)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
			logger.InfoContext(ctx, "postgres migrations applied", slog.Any("files", applied))
		}

		pool := pgClient.Pool()
		deps.Runs = postgres.NewRunStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewResultCache(redisClient, cfg.Scan.ResultTTL.Duration)
		deps.Bus = redis.NewSignalBusWithMaxLen(redisClient, cfg.Scan.StreamMaxLen)
		deps.Lock = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Deduper = redis.NewDeduper(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
	} else {
		// Alerts and the WebSocket relay still work within one process.
		deps.Bus = memory.NewBus(cfg.Scan.StreamMaxLen)
		deps.Deduper = memory.NewDeduper()
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			KeyPrefix:      cfg.S3.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		writer := s3blob.NewWriter(s3Client)
		deps.Snapshots = s3blob.NewSnapshotStore(writer, s3blob.NewReader(s3Client))
		deps.HealthChecks["s3"] = s3Client.Health

		// Archiving needs the run store to read from and prune.
		if cfg.Archive.Enabled && deps.Runs != nil {
			deps.Archiver = s3blob.NewArchiver(writer, deps.Runs, deps.Audit, cfg.Archive.DeleteAfter)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(notify.TelegramConfig{
			Token:  cfg.Notify.TelegramToken,
			ChatID: cfg.Notify.TelegramChatID,
		}))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(notify.DiscordConfig{
			WebhookURL: cfg.Notify.DiscordWebhookURL,
			Username:   "newsgap",
		}))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// buildNewsSource aggregates the JSON API and every RSS feed into one source.
func buildNewsSource(cfg config.NewsConfig, logger *slog.Logger) (*news.Aggregator, error) {
	labeler := news.NewLabeler(cfg.BullishWords, cfg.BearishWords)

	var sources []news.Source
	if cfg.APIURL != "" {
		sources = append(sources, news.NewHTTPSource(news.HTTPSourceConfig{
			Name:     "api",
			URL:      cfg.APIURL,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.Timeout.Duration,
			RatePerS: cfg.RatePerSecond,
			Labeler:  labeler,
		}))
	}
	for i, feed := range cfg.Feeds {
		sources = append(sources, news.NewRSSSource(news.RSSSourceConfig{
			Name:     fmt.Sprintf("feed-%d", i+1),
			URL:      feed,
			MaxItems: cfg.FeedMaxItems,
			Timeout:  cfg.Timeout.Duration,
			Labeler:  labeler,
		}))
	}
	if len(sources) == 0 {
		return nil, domain.ErrNoSources
	}
	return news.NewAggregator(sources, cfg.MaxItems, logger), nil
}

// buildMarketSource merges the enabled prediction-market venues.
func buildMarketSource(cfg *config.Config, logger *slog.Logger) (*platform.MultiSource, error) {
	var venues []platform.Venue
	if cfg.Polymarket.Enabled {
		venues = append(venues, &polymarket.EventSource{
			Client: polymarket.NewGammaClient(cfg.Polymarket.GammaHost),
			Query: polymarket.EventQuery{
				Limit:   cfg.Polymarket.EventLimit,
				TagSlug: cfg.Polymarket.TagSlug,
				Order:   "volume",
			},
		})
	}
	if cfg.Kalshi.Enabled {
		client := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKey)
		if cfg.Kalshi.RsaPrivateKeyPath != "" {
			pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("read kalshi key: %w", err)
			}
			if err := client.SetRSAPrivateKey(pemBytes); err != nil {
				return nil, err
			}
		}
		venues = append(venues, &kalshi.EventSource{Client: client, Limit: cfg.Kalshi.EventLimit})
	}
	if len(venues) == 0 {
		return nil, domain.ErrNoSources
	}
	return platform.NewMultiSource(venues, cfg.Scan.VenueRatePerSecond, logger), nil
}
