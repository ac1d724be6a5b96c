package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flowponder/ponderd/internal/domain"
)

// SnapshotSource provides the live views the archiver persists. The market
// orchestrator satisfies this; the archiver only needs its two read paths.
type SnapshotSource interface {
	ActivePonders(ctx context.Context) ([]domain.Ponder, error)
	Leaderboard(ctx context.Context, metric domain.Metric) ([]domain.LeaderboardEntry, error)
}

// SnapshotArchiver implements domain.Archiver by serializing the active
// ponder listing and the leaderboard to JSONL and uploading both to object
// storage, date-partitioned. Snapshots are append-only history; nothing is
// ever deleted from the primary path because the ledger is the primary path.
type SnapshotArchiver struct {
	writer domain.BlobWriter
	source SnapshotSource
}

// NewSnapshotArchiver creates a SnapshotArchiver.
func NewSnapshotArchiver(writer domain.BlobWriter, source SnapshotSource) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer, source: source}
}

// ArchiveSnapshot captures both views at the given time and uploads them to
//
//	snapshots/YYYY-MM-DD/ponders.jsonl
//	snapshots/YYYY-MM-DD/leaderboard.jsonl
//
// Running it twice on the same day overwrites, which is acceptable: the later
// snapshot is the better one.
func (a *SnapshotArchiver) ArchiveSnapshot(ctx context.Context, at time.Time) error {
	ponders, err := a.source.ActivePonders(ctx)
	if err != nil {
		return fmt.Errorf("s3blob: snapshot ponders query: %w", err)
	}
	if err := upload(ctx, a.writer, snapshotPath("ponders", at), ponders); err != nil {
		return err
	}

	entries, err := a.source.Leaderboard(ctx, domain.MetricAccuracy)
	if err != nil {
		return fmt.Errorf("s3blob: snapshot leaderboard query: %w", err)
	}
	return upload(ctx, a.writer, snapshotPath("leaderboard", at), entries)
}

func upload[T any](ctx context.Context, w domain.BlobWriter, path string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: snapshot marshal %s: %w", path, err)
	}
	if err := w.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: snapshot upload %s: %w", path, err)
	}
	return nil
}

// snapshotPath builds the storage key for one snapshot view, partitioned by
// calendar date.
func snapshotPath(view string, at time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.jsonl", at.UTC().Format("2006-01-02"), view)
}

// marshalJSONL serialises a slice as newline-delimited JSON, one compact
// line per element.
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

// Compile-time interface check.
var _ domain.Archiver = (*SnapshotArchiver)(nil)
