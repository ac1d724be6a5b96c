package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/flowponder/ponderd/internal/analytics"
	"github.com/flowponder/ponderd/internal/domain"
)

// LeaderboardService defines what the leaderboard handler needs from the
// orchestrator.
type LeaderboardService interface {
	Leaderboard(ctx context.Context, metric domain.Metric) ([]domain.LeaderboardEntry, error)
	UserStats(ctx context.Context, addr domain.Address) (domain.UserStats, error)
	UserVotes(ctx context.Context, addr domain.Address) ([]domain.Vote, error)
	Balance(ctx context.Context, addr domain.Address) (domain.Amount, error)
}

// LeaderboardHandler serves ranking and per-user stats endpoints.
type LeaderboardHandler struct {
	market LeaderboardService
	logger *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(market LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{market: market, logger: logger}
}

// rankedEntry adds the 1-based rank and a display-formatted winnings figure.
type rankedEntry struct {
	Rank int `json:"rank"`
	domain.LeaderboardEntry
	WinningsDisplay string `json:"winningsDisplay"`
}

// GetLeaderboard returns the leaderboard ranked by the requested metric.
// GET /api/leaderboard?metric=accuracy
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	metricParam := r.URL.Query().Get("metric")
	if metricParam == "" {
		metricParam = string(domain.MetricAccuracy)
	}
	metric, err := domain.ParseMetric(metricParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.market.Leaderboard(r.Context(), metric)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "leaderboard failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}

	ranked := make([]rankedEntry, len(entries))
	for i, e := range entries {
		ranked[i] = rankedEntry{
			Rank:             i + 1,
			LeaderboardEntry: e,
			WinningsDisplay:  analytics.FormatAmount(e.Stats.TotalWinnings),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"metric":  metric,
		"entries": ranked,
	})
}

// GetUserStats returns the prediction record for one account.
// GET /api/users/{address}/stats
func (h *LeaderboardHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	stats, err := h.market.UserStats(r.Context(), addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetUserVotes returns every vote one account has placed.
// GET /api/users/{address}/votes
func (h *LeaderboardHandler) GetUserVotes(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	votes, err := h.market.UserVotes(r.Context(), addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"votes": votes,
		"total": len(votes),
	})
}

// GetUserBalance returns one account's token balance.
// GET /api/users/{address}/balance
func (h *LeaderboardHandler) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	balance, err := h.market.Balance(r.Context(), addr)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr,
		"balance": balance,
	})
}
