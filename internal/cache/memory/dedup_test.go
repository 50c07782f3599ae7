package memory

import (
	"context"
	"testing"
	"time"
)

func TestDeduperMarkIfNew(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	d := NewDeduper()
	d.now = func() time.Time { return clock }

	if ok, _ := d.MarkIfNew(ctx, "alert:dsl-n1-m1", time.Hour); !ok {
		t.Fatal("first mark should be new")
	}
	if ok, _ := d.MarkIfNew(ctx, "alert:dsl-n1-m1", time.Hour); ok {
		t.Fatal("second mark within ttl should be a duplicate")
	}
	if ok, _ := d.MarkIfNew(ctx, "alert:dsl-n2-m1", time.Hour); !ok {
		t.Fatal("different key should be new")
	}

	clock = clock.Add(time.Hour)
	if ok, _ := d.MarkIfNew(ctx, "alert:dsl-n1-m1", time.Hour); !ok {
		t.Fatal("mark after expiry should be new")
	}
	// The other key expired at the same instant and was swept.
	if got := d.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}
