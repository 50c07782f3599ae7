package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	// Event restricts audit listings to one event name when non-empty.
	Event string
}

// RunSummary is a lightweight listing row for a stored run.
type RunSummary struct {
	ID                  string    `json:"id"`
	StartedAt           time.Time `json:"startedAt"`
	SignalCount         int       `json:"signalCount"`
	AvgDislocationScore float64   `json:"avgDislocationScore"`
	NewsSourcesScanned  int       `json:"newsSourcesScanned"`
	MarketsScanned      int       `json:"marketsScanned"`
	SnapshotPath        string    `json:"snapshotPath,omitempty"`
}

// RunStore persists detection runs and their signals.
type RunStore interface {
	SaveRun(ctx context.Context, run DislocationRun) error
	GetRun(ctx context.Context, id string) (DislocationRun, error)
	ListRuns(ctx context.Context, opts ListOpts) ([]RunSummary, error)
	ListBefore(ctx context.Context, before time.Time) ([]DislocationRun, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
