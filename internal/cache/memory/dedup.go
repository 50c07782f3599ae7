// Package memory holds in-process fallbacks for the Redis-backed caches,
// used when Redis is not configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// Deduper remembers keys for a TTL within a single process. It is safe for
// concurrent use.
type Deduper struct {
	seen map[string]time.Time // key -> expiry
	now  func() time.Time
	mu   sync.Mutex
}

var _ domain.Deduper = (*Deduper)(nil)

// NewDeduper creates an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// MarkIfNew records key for ttl and reports whether it was absent or
// expired. Expired entries are swept on every call.
func (d *Deduper) MarkIfNew(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
		}
	}

	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = now.Add(ttl)
	return true, nil
}

// Len returns the number of live keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
