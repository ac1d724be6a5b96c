package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/redis/go-redis/v9"
)

const leaderboardTTL = 60 * time.Second

// leaderboardKey holds the unranked entry snapshot; ranking by metric is
// cheap and happens per request, so one snapshot serves every metric.
const leaderboardKey = "leaderboard:entries"

// LeaderboardCache implements domain.LeaderboardCache as one JSON blob. The
// expensive part of leaderboard assembly is the per-address stats fan-out,
// and that is exactly what this cache amortizes.
type LeaderboardCache struct {
	rdb *redis.Client
}

// NewLeaderboardCache creates a LeaderboardCache backed by the given Client.
func NewLeaderboardCache(c *Client) *LeaderboardCache {
	return &LeaderboardCache{rdb: c.Underlying()}
}

// Set stores the unranked leaderboard entries.
func (lc *LeaderboardCache) Set(ctx context.Context, entries []domain.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("redis: marshal leaderboard: %w", err)
	}
	if err := lc.rdb.Set(ctx, leaderboardKey, data, leaderboardTTL).Err(); err != nil {
		return fmt.Errorf("redis: set leaderboard: %w", err)
	}
	return nil
}

// Get retrieves the unranked leaderboard entries, or domain.ErrNotFound.
func (lc *LeaderboardCache) Get(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	data, err := lc.rdb.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get leaderboard: %w", err)
	}

	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("redis: unmarshal leaderboard: %w", err)
	}
	return entries, nil
}

// Invalidate drops the snapshot, forcing reassembly on the next request.
func (lc *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := lc.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("redis: invalidate leaderboard: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.LeaderboardCache = (*LeaderboardCache)(nil)
