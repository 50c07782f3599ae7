package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// Deduper implements domain.Deduper with one SETNX key per seen item. Alerts
// use it so a signal that survives several scans is only sent once.
type Deduper struct {
	c   *Client
	rdb *redis.Client
}

// NewDeduper creates a Deduper backed by the given Client.
func NewDeduper(c *Client) *Deduper {
	return &Deduper{c: c, rdb: c.Underlying()}
}

// MarkIfNew records key for ttl and reports whether it was unseen.
func (d *Deduper) MarkIfNew(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.c.Key("dedup", key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: dedup %s: %w", key, err)
	}
	return ok, nil
}

// Compile-time interface check.
var _ domain.Deduper = (*Deduper)(nil)
