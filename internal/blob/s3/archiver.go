package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// RunArchiveStore is the slice of the run store the archiver needs.
type RunArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.DislocationRun, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

var _ domain.Archiver = (*ArchiveImpl)(nil)

// ArchiveImpl implements domain.Archiver: it copies old runs to JSONL in
// object storage, records the move in the audit log and optionally prunes
// the database afterwards.
type ArchiveImpl struct {
	writer      domain.BlobWriter
	runs        RunArchiveStore
	audit       domain.AuditStore
	deleteAfter bool
}

// NewArchiver creates a new ArchiveImpl. When deleteAfter is false the
// archived rows stay in the database.
func NewArchiver(writer domain.BlobWriter, runs RunArchiveStore, audit domain.AuditStore, deleteAfter bool) *ArchiveImpl {
	return &ArchiveImpl{
		writer:      writer,
		runs:        runs,
		audit:       audit,
		deleteAfter: deleteAfter,
	}
}

// ArchiveRuns uploads every run started before the cutoff and returns the
// number archived. Rows are only deleted once the upload and audit entry
// have both succeeded.
func (a *ArchiveImpl) ArchiveRuns(ctx context.Context, before time.Time) (int64, error) {
	runs, err := a.runs.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive runs query: %w", err)
	}
	if len(runs) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(runs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive runs marshal: %w", err)
	}

	path := archivePath("runs", before)
	if int64(len(buf)) >= minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive runs upload: %w", err)
	}

	count := int64(len(runs))
	if err := a.audit.Log(ctx, "archive.runs", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.UTC().Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive runs audit log: %w", err)
	}

	if a.deleteAfter {
		if _, err := a.runs.DeleteBefore(ctx, before); err != nil {
			return count, fmt.Errorf("s3blob: archive runs prune: %w", err)
		}
	}
	return count, nil
}

// archivePath builds the key for an archive file: partitioned by the
// cutoff's month, one file per cutoff.
//
//	archive/runs/2026-01/20260115T000000Z.jsonl
func archivePath(kind string, before time.Time) string {
	before = before.UTC()
	return fmt.Sprintf("archive/%s/%s/%s.jsonl", kind, before.Format("2006-01"), before.Format("20060102T150405Z"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
