package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

var (
	_ domain.SnapshotWriter = (*SnapshotStore)(nil)
	_ domain.SnapshotReader = (*SnapshotStore)(nil)
)

// SnapshotStore writes and reads replayable run bundles.
type SnapshotStore struct {
	writer domain.BlobWriter
	reader domain.BlobReader
}

// NewSnapshotStore creates a SnapshotStore over the given blob backends.
func NewSnapshotStore(writer domain.BlobWriter, reader domain.BlobReader) *SnapshotStore {
	return &SnapshotStore{writer: writer, reader: reader}
}

// WriteSnapshot uploads snap to snapshots/YYYY/MM/DD/<runID>.json and
// returns the path. Bundles past the multipart threshold go through the
// upload manager.
func (s *SnapshotStore) WriteSnapshot(ctx context.Context, snap domain.ScanSnapshot) (string, error) {
	if snap.RunID == "" {
		return "", fmt.Errorf("s3blob: snapshot has no run id")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return "", fmt.Errorf("s3blob: encode snapshot %s: %w", snap.RunID, err)
	}

	path := snapshotPath(snap.RunID, snap.Now)
	if int64(buf.Len()) >= minPartSize {
		if err := s.writer.PutMultipart(ctx, path, &buf, minPartSize); err != nil {
			return "", err
		}
		return path, nil
	}
	if err := s.writer.Put(ctx, path, &buf, "application/json"); err != nil {
		return "", err
	}
	return path, nil
}

// ReadSnapshot downloads and decodes the bundle at path.
func (s *SnapshotStore) ReadSnapshot(ctx context.Context, path string) (domain.ScanSnapshot, error) {
	body, err := s.reader.Get(ctx, path)
	if err != nil {
		return domain.ScanSnapshot{}, err
	}
	defer body.Close()

	var snap domain.ScanSnapshot
	if err := json.NewDecoder(body).Decode(&snap); err != nil {
		return domain.ScanSnapshot{}, fmt.Errorf("s3blob: decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// snapshotPath partitions bundles by the UTC day of the run.
//
//	snapshots/2026/03/14/<runID>.json
func snapshotPath(runID string, at time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.json", at.UTC().Format("2006/01/02"), runID)
}
