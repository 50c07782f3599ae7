package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// DefaultResultTTL bounds how long a cached run is served.
const DefaultResultTTL = 15 * time.Minute

// ResultCache implements domain.ResultCache using Redis hashes holding the
// JSON-serialised run.
//
// Key schema:
//
//	dislocation:latest    - hash: data (run JSON), run_id, generated_at
//	dislocation:run:{id}  - hash: data (run JSON)
type ResultCache struct {
	c   *Client
	rdb *redis.Client
	ttl time.Duration
}

// NewResultCache creates a ResultCache. ttl <= 0 uses DefaultResultTTL.
func NewResultCache(c *Client, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &ResultCache{c: c, rdb: c.Underlying(), ttl: ttl}
}

func (rc *ResultCache) latestKey() string {
	return rc.c.Key("dislocation", "latest")
}

func (rc *ResultCache) runKey(id string) string {
	return rc.c.Key("dislocation", "run", id)
}

// SetLatest stores the run as the latest result and under its own id.
func (rc *ResultCache) SetLatest(ctx context.Context, run domain.DislocationRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("redis: marshal run %s: %w", run.ID, err)
	}

	latest := rc.latestKey()
	byID := rc.runKey(run.ID)

	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, latest,
		"data", data,
		"run_id", run.ID,
		"generated_at", run.Result.Meta.GeneratedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, latest, rc.ttl)
	pipe.HSet(ctx, byID, "data", data)
	pipe.Expire(ctx, byID, rc.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set latest run %s: %w", run.ID, err)
	}
	return nil
}

// GetLatest returns the most recently cached run, or domain.ErrNotFound.
func (rc *ResultCache) GetLatest(ctx context.Context) (domain.DislocationRun, error) {
	return rc.load(ctx, rc.latestKey(), "latest")
}

// GetRun returns a cached run by id, or domain.ErrNotFound.
func (rc *ResultCache) GetRun(ctx context.Context, id string) (domain.DislocationRun, error) {
	return rc.load(ctx, rc.runKey(id), id)
}

func (rc *ResultCache) load(ctx context.Context, key, label string) (domain.DislocationRun, error) {
	data, err := rc.rdb.HGet(ctx, key, "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DislocationRun{}, domain.ErrNotFound
		}
		return domain.DislocationRun{}, fmt.Errorf("redis: get run %s: %w", label, err)
	}

	var run domain.DislocationRun
	if err := json.Unmarshal(data, &run); err != nil {
		return domain.DislocationRun{}, fmt.Errorf("redis: unmarshal run %s: %w", label, err)
	}
	return run, nil
}

// Compile-time interface check.
var _ domain.ResultCache = (*ResultCache)(nil)
