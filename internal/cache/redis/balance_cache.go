package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/redis/go-redis/v9"
)

const balanceTTL = 20 * time.Second

// BalanceCache implements domain.BalanceCache. Balances are stored in their
// canonical fixed-point string form so a cached value round-trips exactly.
type BalanceCache struct {
	rdb *redis.Client
}

// NewBalanceCache creates a BalanceCache backed by the given Client.
func NewBalanceCache(c *Client) *BalanceCache {
	return &BalanceCache{rdb: c.Underlying()}
}

func balanceKey(addr domain.Address) string { return "balance:" + string(addr) }

// Set stores the last-confirmed balance for an address.
func (bc *BalanceCache) Set(ctx context.Context, addr domain.Address, balance domain.Amount) error {
	if err := bc.rdb.Set(ctx, balanceKey(addr), balance.String(), balanceTTL).Err(); err != nil {
		return fmt.Errorf("redis: set balance %s: %w", addr, err)
	}
	return nil
}

// Get retrieves the cached balance for an address, or domain.ErrNotFound.
func (bc *BalanceCache) Get(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	raw, err := bc.rdb.Get(ctx, balanceKey(addr)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get balance %s: %w", addr, err)
	}

	balance, err := domain.ParseAmount(raw)
	if err != nil {
		return 0, fmt.Errorf("redis: parse balance %s: %w", addr, err)
	}
	return balance, nil
}

// Invalidate drops the cached balance for an address.
func (bc *BalanceCache) Invalidate(ctx context.Context, addr domain.Address) error {
	if err := bc.rdb.Del(ctx, balanceKey(addr)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate balance %s: %w", addr, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BalanceCache = (*BalanceCache)(nil)
