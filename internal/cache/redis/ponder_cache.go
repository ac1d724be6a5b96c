package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	ponderTTL = 30 * time.Second
	activeTTL = 15 * time.Second
)

// PonderCache implements domain.PonderCache with short-TTL JSON snapshots.
// TTLs are deliberately small: the ledger stays authoritative and stale
// reads self-heal within one TTL even if an invalidation is missed.
//
// Key schema:
//
//	ponder:{id}    - JSON-serialized Ponder
//	ponder:active  - JSON array of active Ponders
type PonderCache struct {
	rdb *redis.Client
}

// NewPonderCache creates a PonderCache backed by the given Client.
func NewPonderCache(c *Client) *PonderCache {
	return &PonderCache{rdb: c.Underlying()}
}

func ponderKey(id domain.PonderID) string {
	return "ponder:" + strconv.FormatUint(uint64(id), 10)
}

const activeKey = "ponder:active"

// Set stores one ponder snapshot.
func (pc *PonderCache) Set(ctx context.Context, p domain.Ponder) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal ponder %d: %w", p.ID, err)
	}
	if err := pc.rdb.Set(ctx, ponderKey(p.ID), data, ponderTTL).Err(); err != nil {
		return fmt.Errorf("redis: set ponder %d: %w", p.ID, err)
	}
	return nil
}

// Get retrieves one ponder snapshot. It returns domain.ErrNotFound when the
// key does not exist or has expired.
func (pc *PonderCache) Get(ctx context.Context, id domain.PonderID) (domain.Ponder, error) {
	data, err := pc.rdb.Get(ctx, ponderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Ponder{}, domain.ErrNotFound
		}
		return domain.Ponder{}, fmt.Errorf("redis: get ponder %d: %w", id, err)
	}

	var p domain.Ponder
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Ponder{}, fmt.Errorf("redis: unmarshal ponder %d: %w", id, err)
	}
	return p, nil
}

// SetActive stores the active-ponder listing and refreshes the per-ponder
// entries in the same pipeline.
func (pc *PonderCache) SetActive(ctx context.Context, ponders []domain.Ponder) error {
	listing, err := json.Marshal(ponders)
	if err != nil {
		return fmt.Errorf("redis: marshal active ponders: %w", err)
	}

	pipe := pc.rdb.TxPipeline()
	pipe.Set(ctx, activeKey, listing, activeTTL)
	for _, p := range ponders {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("redis: marshal ponder %d: %w", p.ID, err)
		}
		pipe.Set(ctx, ponderKey(p.ID), data, ponderTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set active ponders: %w", err)
	}
	return nil
}

// GetActive retrieves the active-ponder listing.
func (pc *PonderCache) GetActive(ctx context.Context) ([]domain.Ponder, error) {
	data, err := pc.rdb.Get(ctx, activeKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get active ponders: %w", err)
	}

	var ponders []domain.Ponder
	if err := json.Unmarshal(data, &ponders); err != nil {
		return nil, fmt.Errorf("redis: unmarshal active ponders: %w", err)
	}
	return ponders, nil
}

// Invalidate drops one ponder snapshot and the active listing. The listing
// goes too because it embeds the ponder's vote counts.
func (pc *PonderCache) Invalidate(ctx context.Context, id domain.PonderID) error {
	pipe := pc.rdb.TxPipeline()
	pipe.Del(ctx, ponderKey(id))
	pipe.Del(ctx, activeKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate ponder %d: %w", id, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PonderCache = (*PonderCache)(nil)
