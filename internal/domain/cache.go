package domain

import "context"

// PonderCache provides fast ponder snapshot lookups. Entries are short-lived
// and invalidated after every confirmed mutating operation; the ledger is
// always the source of truth.
type PonderCache interface {
	Set(ctx context.Context, p Ponder) error
	Get(ctx context.Context, id PonderID) (Ponder, error)
	SetActive(ctx context.Context, ponders []Ponder) error
	GetActive(ctx context.Context) ([]Ponder, error)
	Invalidate(ctx context.Context, id PonderID) error
}

// LeaderboardCache stores the last assembled leaderboard.
type LeaderboardCache interface {
	Set(ctx context.Context, entries []LeaderboardEntry) error
	Get(ctx context.Context) ([]LeaderboardEntry, error)
	Invalidate(ctx context.Context) error
}

// BalanceCache stores last-confirmed token balances per address.
type BalanceCache interface {
	Set(ctx context.Context, addr Address, balance Amount) error
	Get(ctx context.Context, addr Address) (Amount, error)
	Invalidate(ctx context.Context, addr Address) error
}

// EventBus mirrors in-process session and operation events for external
// consumers (the WebSocket hub, notification subsystems).
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
