package domain

import "fmt"

// UserStats is the ledger-derived performance snapshot for one account. The
// client never computes these; it only refreshes them on demand.
type UserStats struct {
	Accuracy           float64 `json:"accuracy"` // in [0,1]
	TotalWinnings      Amount  `json:"totalWinnings"`
	TotalVotes         uint64  `json:"totalVotes"`
	TotalStaked        Amount  `json:"totalStaked"`
	CorrectPredictions uint64  `json:"correctPredictions"`
}

// LeaderboardEntry pairs an address with its stats snapshot. Entries with a
// nil Stats (the per-address query failed or the account has no history) are
// excluded from ranking, never ranked as zero.
type LeaderboardEntry struct {
	Address Address    `json:"address"`
	Stats   *UserStats `json:"stats"`
}

// Metric selects the leaderboard ranking dimension.
type Metric string

const (
	MetricAccuracy Metric = "accuracy"
	MetricWinnings Metric = "winnings"
	MetricVotes    Metric = "votes"
)

// ParseMetric validates a metric name from an API request or config.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricAccuracy, MetricWinnings, MetricVotes:
		return Metric(s), nil
	}
	return "", fmt.Errorf("domain: unknown leaderboard metric %q", s)
}
