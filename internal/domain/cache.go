package domain

import (
	"context"
	"time"
)

// ResultCache holds the most recent detection result for fast reads.
type ResultCache interface {
	SetLatest(ctx context.Context, run DislocationRun) error
	GetLatest(ctx context.Context) (DislocationRun, error)
}

// Deduper remembers keys for a while so repeated work can be skipped.
// MarkIfNew returns true the first time a key is seen within ttl.
type Deduper interface {
	MarkIfNew(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
