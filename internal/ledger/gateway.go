package ledger

import (
	"context"
	"fmt"

	"github.com/flowponder/ponderd/internal/domain"
)

// CreatePonderParams are the typed arguments of a creation transaction. The
// orchestrator validates them before they reach this layer; this layer only
// guarantees correct wire encoding.
type CreatePonderParams struct {
	Question      string
	Description   string
	Options       []string
	DurationHours domain.Amount
	MinBet        domain.Amount
	MaxBet        domain.Amount
	Category      domain.Category
}

// SendCreatePonder submits a ponder creation transaction. The creation fee is
// withdrawn from the signer's vault by the transaction itself.
func (c *Client) SendCreatePonder(ctx context.Context, signer Authorizer, p CreatePonderParams) (string, error) {
	args := []Value{
		String(p.Question),
		String(p.Description),
		StringArray(p.Options),
		UFix64(p.DurationHours),
		UFix64(p.MinBet),
		UFix64(p.MaxBet),
		String(string(p.Category)),
	}
	txID, err := c.SubmitTransaction(ctx, txCreatePonder, args, signer)
	if err != nil {
		return "", fmt.Errorf("ledger: create ponder: %w", err)
	}
	return txID, nil
}

// SendVote submits a staked vote transaction.
func (c *Client) SendVote(ctx context.Context, signer Authorizer, id domain.PonderID, option int, amount domain.Amount) (string, error) {
	optionArg, err := UInt8(option)
	if err != nil {
		return "", fmt.Errorf("ledger: place vote: %w", err)
	}
	args := []Value{UInt64(uint64(id)), optionArg, UFix64(amount)}
	txID, err := c.SubmitTransaction(ctx, txPlaceVote, args, signer)
	if err != nil {
		return "", fmt.Errorf("ledger: place vote: %w", err)
	}
	return txID, nil
}

// SendFreeVote submits a zero-stake vote transaction.
func (c *Client) SendFreeVote(ctx context.Context, signer Authorizer, id domain.PonderID, option int) (string, error) {
	optionArg, err := UInt8(option)
	if err != nil {
		return "", fmt.Errorf("ledger: free vote: %w", err)
	}
	args := []Value{UInt64(uint64(id)), optionArg}
	txID, err := c.SubmitTransaction(ctx, txFreeVote, args, signer)
	if err != nil {
		return "", fmt.Errorf("ledger: free vote: %w", err)
	}
	return txID, nil
}

// SendWithdraw submits a winnings withdrawal transaction.
func (c *Client) SendWithdraw(ctx context.Context, signer Authorizer, id domain.PonderID) (string, error) {
	args := []Value{UInt64(uint64(id))}
	txID, err := c.SubmitTransaction(ctx, txWithdrawWinnings, args, signer)
	if err != nil {
		return "", fmt.Errorf("ledger: withdraw winnings: %w", err)
	}
	return txID, nil
}

// GetPonder queries a single ponder. It returns domain.ErrNotFound when the
// ledger reports no ponder with that ID.
func (c *Client) GetPonder(ctx context.Context, id domain.PonderID) (domain.Ponder, error) {
	result, err := c.ExecuteScript(ctx, scriptGetPonder, []Value{UInt64(uint64(id))})
	if err != nil {
		return domain.Ponder{}, fmt.Errorf("ledger: get ponder %d: %w", id, err)
	}
	inner, present, err := result.asOptional()
	if err != nil {
		return domain.Ponder{}, fmt.Errorf("ledger: get ponder %d: %w", id, err)
	}
	if !present {
		return domain.Ponder{}, fmt.Errorf("ledger: ponder %d: %w", id, domain.ErrNotFound)
	}
	p, err := decodePonder(inner)
	if err != nil {
		return domain.Ponder{}, fmt.Errorf("ledger: get ponder %d: %w", id, err)
	}
	return p, nil
}

// ListActivePonders queries all ponders whose betting window is open.
func (c *Client) ListActivePonders(ctx context.Context) ([]domain.Ponder, error) {
	result, err := c.ExecuteScript(ctx, scriptActivePonders, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: list active ponders: %w", err)
	}
	items, err := result.asArray()
	if err != nil {
		return nil, fmt.Errorf("ledger: list active ponders: %w", err)
	}
	ponders := make([]domain.Ponder, 0, len(items))
	for _, item := range items {
		p, err := decodePonder(item)
		if err != nil {
			return nil, fmt.Errorf("ledger: list active ponders: %w", err)
		}
		ponders = append(ponders, p)
	}
	return ponders, nil
}

// GetUserStats queries the ledger-derived stats snapshot for one account.
// Accounts with no history return domain.ErrNotFound.
func (c *Client) GetUserStats(ctx context.Context, addr domain.Address) (domain.UserStats, error) {
	addrArg, err := Address(addr)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("ledger: get user stats: %w", err)
	}
	result, err := c.ExecuteScript(ctx, scriptUserStats, []Value{addrArg})
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("ledger: get user stats %s: %w", addr, err)
	}
	inner, present, err := result.asOptional()
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("ledger: get user stats %s: %w", addr, err)
	}
	if !present {
		return domain.UserStats{}, fmt.Errorf("ledger: stats for %s: %w", addr, domain.ErrNotFound)
	}
	stats, err := decodeUserStats(inner)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("ledger: get user stats %s: %w", addr, err)
	}
	return stats, nil
}

// GetUserVotes queries every vote an account has placed.
func (c *Client) GetUserVotes(ctx context.Context, addr domain.Address) ([]domain.Vote, error) {
	addrArg, err := Address(addr)
	if err != nil {
		return nil, fmt.Errorf("ledger: get user votes: %w", err)
	}
	result, err := c.ExecuteScript(ctx, scriptUserVotes, []Value{addrArg})
	if err != nil {
		return nil, fmt.Errorf("ledger: get user votes %s: %w", addr, err)
	}
	items, err := result.asArray()
	if err != nil {
		return nil, fmt.Errorf("ledger: get user votes %s: %w", addr, err)
	}
	votes := make([]domain.Vote, 0, len(items))
	for _, item := range items {
		v, err := decodeVote(item)
		if err != nil {
			return nil, fmt.Errorf("ledger: get user votes %s: %w", addr, err)
		}
		votes = append(votes, v)
	}
	return votes, nil
}

// GetLeaderboard queries the addresses the contract tracks for ranking, in
// the order the ledger returns them. Ranking itself is client-side.
func (c *Client) GetLeaderboard(ctx context.Context) ([]domain.Address, error) {
	result, err := c.ExecuteScript(ctx, scriptLeaderboard, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: get leaderboard: %w", err)
	}
	items, err := result.asArray()
	if err != nil {
		return nil, fmt.Errorf("ledger: get leaderboard: %w", err)
	}
	addrs := make([]domain.Address, 0, len(items))
	for _, item := range items {
		a, err := item.asAddress()
		if err != nil {
			return nil, fmt.Errorf("ledger: get leaderboard: %w", err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

// GetBalance queries an account's token balance.
func (c *Client) GetBalance(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	addrArg, err := Address(addr)
	if err != nil {
		return 0, fmt.Errorf("ledger: get balance: %w", err)
	}
	result, err := c.ExecuteScript(ctx, scriptBalance, []Value{addrArg})
	if err != nil {
		return 0, fmt.Errorf("ledger: get balance %s: %w", addr, err)
	}
	balance, err := result.asAmount()
	if err != nil {
		return 0, fmt.Errorf("ledger: get balance %s: %w", addr, err)
	}
	return balance, nil
}
