package market

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/flowponder/ponderd/internal/analytics"
	"github.com/flowponder/ponderd/internal/domain"
)

// leaderboardFanout bounds concurrent per-address stats queries.
const leaderboardFanout = 8

// Ponder returns one ponder, serving from cache when possible.
func (s *Service) Ponder(ctx context.Context, id domain.PonderID) (domain.Ponder, error) {
	if s.ponders != nil {
		if p, err := s.ponders.Get(ctx, id); err == nil {
			return p, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "ponder cache read failed",
				slog.String("error", err.Error()))
		}
	}
	p, err := s.gw.GetPonder(ctx, id)
	if err != nil {
		return domain.Ponder{}, err
	}
	if s.ponders != nil {
		if err := s.ponders.Set(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "ponder cache write failed",
				slog.String("error", err.Error()))
		}
	}
	return p, nil
}

// ActivePonders lists ponders whose betting window is open.
func (s *Service) ActivePonders(ctx context.Context) ([]domain.Ponder, error) {
	if s.ponders != nil {
		if ponders, err := s.ponders.GetActive(ctx); err == nil {
			return ponders, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "active ponder cache read failed",
				slog.String("error", err.Error()))
		}
	}
	ponders, err := s.gw.ListActivePonders(ctx)
	if err != nil {
		return nil, err
	}
	if s.ponders != nil {
		if err := s.ponders.SetActive(ctx, ponders); err != nil {
			s.logger.WarnContext(ctx, "active ponder cache write failed",
				slog.String("error", err.Error()))
		}
	}
	return ponders, nil
}

// UserStats returns the prediction record for one address.
func (s *Service) UserStats(ctx context.Context, addr domain.Address) (domain.UserStats, error) {
	return s.gw.GetUserStats(ctx, addr)
}

// Balance returns the token balance of any address, serving from cache when
// possible. The signed-in account's balance is refreshed through the session
// instead; this path exists for viewing other accounts.
func (s *Service) Balance(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	if s.balances != nil {
		if b, err := s.balances.Get(ctx, addr); err == nil {
			return b, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "balance cache read failed",
				slog.String("error", err.Error()))
		}
	}
	b, err := s.gw.GetBalance(ctx, addr)
	if err != nil {
		return 0, err
	}
	if s.balances != nil {
		if err := s.balances.Set(ctx, addr, b); err != nil {
			s.logger.WarnContext(ctx, "balance cache write failed",
				slog.String("error", err.Error()))
		}
	}
	return b, nil
}

// UserVotes returns every vote the address has placed.
func (s *Service) UserVotes(ctx context.Context, addr domain.Address) ([]domain.Vote, error) {
	return s.gw.GetUserVotes(ctx, addr)
}

// Leaderboard assembles and ranks the leaderboard by the requested metric.
// The expensive part, one stats query per ranked address, is fanned out with
// a bounded group and cached unranked; ranking itself is cheap and happens
// per request so every metric is served from one snapshot.
func (s *Service) Leaderboard(ctx context.Context, metric domain.Metric) ([]domain.LeaderboardEntry, error) {
	entries, err := s.leaderboardEntries(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.RankLeaderboard(entries, metric), nil
}

func (s *Service) leaderboardEntries(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	if s.board != nil {
		if entries, err := s.board.Get(ctx); err == nil {
			return entries, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "leaderboard cache read failed",
				slog.String("error", err.Error()))
		}
	}

	addrs, err := s.gw.GetLeaderboard(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(leaderboardFanout)
	for i, addr := range addrs {
		g.Go(func() error {
			entries[i].Address = addr
			stats, err := s.gw.GetUserStats(gctx, addr)
			if errors.Is(err, domain.ErrNotFound) {
				// No stats resource on chain yet; ranked out later.
				return nil
			}
			if err != nil {
				return err
			}
			entries[i].Stats = &stats
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.board != nil {
		if err := s.board.Set(ctx, entries); err != nil {
			s.logger.WarnContext(ctx, "leaderboard cache write failed",
				slog.String("error", err.Error()))
		}
	}
	return entries, nil
}
