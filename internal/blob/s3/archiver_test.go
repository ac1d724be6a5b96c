package s3blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
)

type memWriter struct {
	puts map[string]string
}

func (m *memWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.puts == nil {
		m.puts = make(map[string]string)
	}
	m.puts[path] = string(body)
	return nil
}

type stubSource struct {
	ponders []domain.Ponder
	entries []domain.LeaderboardEntry
}

func (s stubSource) ActivePonders(ctx context.Context) ([]domain.Ponder, error) {
	return s.ponders, nil
}

func (s stubSource) Leaderboard(ctx context.Context, metric domain.Metric) ([]domain.LeaderboardEntry, error) {
	return s.entries, nil
}

func TestArchiveSnapshotWritesDatePartitionedViews(t *testing.T) {
	w := &memWriter{}
	src := stubSource{
		ponders: []domain.Ponder{
			{ID: 1, Question: "Will it rain tomorrow?", Options: []string{"Yes", "No"}},
			{ID: 2, Question: "Will ETH flip BTC this cycle?", Options: []string{"Yes", "No"}},
		},
		entries: []domain.LeaderboardEntry{
			{Address: "0x1234567890abcdef", Stats: &domain.UserStats{Accuracy: 0.8}},
		},
	}
	arch := NewSnapshotArchiver(w, src)

	at := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	require.NoError(t, arch.ArchiveSnapshot(context.Background(), at))

	ponders, ok := w.puts["snapshots/2026-08-30/ponders.jsonl"]
	require.True(t, ok, "ponder snapshot missing: %v", w.puts)
	assert.Equal(t, 2, strings.Count(ponders, "\n"), "one JSONL line per ponder")

	board, ok := w.puts["snapshots/2026-08-30/leaderboard.jsonl"]
	require.True(t, ok)
	assert.Contains(t, board, "0x1234567890abcdef")
}
