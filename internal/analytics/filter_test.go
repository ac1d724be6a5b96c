package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
)

func TestFilterPonders(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ponders := []domain.Ponder{
		{ID: 1, Question: "Will BTC reach 100k?", EndTime: now.Unix() + 86400},
		{ID: 2, Question: "Will it rain?", EndTime: now.Unix() + 600, IsJuiced: true},
		{ID: 3, Question: "Election winner?", Description: "national politics", EndTime: now.Unix() - 10},
	}

	all := FilterPonders(ponders, FilterAll, "", now)
	assert.Len(t, all, 3)

	featured := FilterPonders(ponders, FilterFeatured, "", now)
	require.Len(t, featured, 1)
	assert.Equal(t, domain.PonderID(2), featured[0].ID)

	// Already-ended ponder 3 must not appear as ending soon.
	soon := FilterPonders(ponders, FilterEndingSoon, "", now)
	require.Len(t, soon, 1)
	assert.Equal(t, domain.PonderID(2), soon[0].ID)

	search := FilterPonders(ponders, FilterAll, "btc", now)
	require.Len(t, search, 1)
	assert.Equal(t, domain.PonderID(1), search[0].ID)

	// Search matches descriptions too.
	search = FilterPonders(ponders, FilterAll, "POLITICS", now)
	require.Len(t, search, 1)
	assert.Equal(t, domain.PonderID(3), search[0].ID)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseFilter("bogus")
	assert.Error(t, err)
}
