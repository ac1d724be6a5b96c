package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
)

func entry(addr string, accuracy float64, winnings string, votes uint64) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Address: domain.Address(addr),
		Stats: &domain.UserStats{
			Accuracy:      accuracy,
			TotalWinnings: domain.MustAmount(winnings),
			TotalVotes:    votes,
		},
	}
}

func TestRankLeaderboardByMetric(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		entry("0x0000000000000001", 0.5, "100", 3),
		entry("0x0000000000000002", 0.9, "10", 50),
		entry("0x0000000000000003", 0.7, "500", 8),
	}

	byAccuracy := RankLeaderboard(entries, domain.MetricAccuracy)
	require.Len(t, byAccuracy, 3)
	assert.Equal(t, domain.Address("0x0000000000000002"), byAccuracy[0].Address)

	byWinnings := RankLeaderboard(entries, domain.MetricWinnings)
	assert.Equal(t, domain.Address("0x0000000000000003"), byWinnings[0].Address)

	byVotes := RankLeaderboard(entries, domain.MetricVotes)
	assert.Equal(t, domain.Address("0x0000000000000002"), byVotes[0].Address)
}

func TestRankLeaderboardExcludesMissingStats(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		entry("0x0000000000000001", 0.5, "1", 1),
		{Address: "0x0000000000000002", Stats: nil},
		entry("0x0000000000000003", 0.8, "1", 1),
	}

	ranked := RankLeaderboard(entries, domain.MetricAccuracy)
	require.Len(t, ranked, 2)
	for _, e := range ranked {
		assert.NotNil(t, e.Stats)
		assert.NotEqual(t, domain.Address("0x0000000000000002"), e.Address)
	}
}

func TestRankLeaderboardStableOnTies(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		entry("0x0000000000000001", 0.5, "1", 1),
		entry("0x0000000000000002", 0.5, "1", 1),
		entry("0x0000000000000003", 0.5, "1", 1),
	}

	ranked := RankLeaderboard(entries, domain.MetricAccuracy)
	require.Len(t, ranked, 3)
	assert.Equal(t, domain.Address("0x0000000000000001"), ranked[0].Address)
	assert.Equal(t, domain.Address("0x0000000000000002"), ranked[1].Address)
	assert.Equal(t, domain.Address("0x0000000000000003"), ranked[2].Address)
}

func TestRankLeaderboardIdempotent(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		entry("0x0000000000000001", 0.2, "5", 9),
		entry("0x0000000000000002", 0.9, "1", 2),
		entry("0x0000000000000003", 0.9, "7", 2),
	}

	once := RankLeaderboard(entries, domain.MetricAccuracy)
	twice := RankLeaderboard(once, domain.MetricAccuracy)
	assert.Equal(t, once, twice)
}

func TestRankLeaderboardDoesNotMutateInput(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		entry("0x0000000000000001", 0.1, "1", 1),
		entry("0x0000000000000002", 0.9, "1", 1),
	}

	_ = RankLeaderboard(entries, domain.MetricAccuracy)
	assert.Equal(t, domain.Address("0x0000000000000001"), entries[0].Address)
}
