package analytics

import (
	"sort"

	"github.com/flowponder/ponderd/internal/domain"
)

// RankLeaderboard returns entries sorted descending by the chosen metric.
// Entries with a missing stats snapshot are excluded before ranking, never
// ranked as zero. The sort is stable: ties keep their relative input order,
// so ranking an already-ranked list is a no-op. The input slice is not
// modified.
func RankLeaderboard(entries []domain.LeaderboardEntry, metric domain.Metric) []domain.LeaderboardEntry {
	ranked := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.Stats == nil {
			continue
		}
		ranked = append(ranked, e)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return metricValue(ranked[i], metric) > metricValue(ranked[j], metric)
	})
	return ranked
}

func metricValue(e domain.LeaderboardEntry, metric domain.Metric) float64 {
	switch metric {
	case domain.MetricWinnings:
		return e.Stats.TotalWinnings.Float64()
	case domain.MetricVotes:
		return float64(e.Stats.TotalVotes)
	default:
		return e.Stats.Accuracy
	}
}
