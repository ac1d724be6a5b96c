package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowponder/ponderd/internal/domain"
)

func ponderWithCounts(counts ...uint64) domain.Ponder {
	opts := make([]string, len(counts))
	for i := range opts {
		opts[i] = "opt"
	}
	return domain.Ponder{Options: opts, VoteCounts: counts}
}

func TestOptionSharePercent(t *testing.T) {
	p := ponderWithCounts(1, 0)
	assert.Equal(t, 100.0, OptionSharePercent(p, 0))
	assert.Equal(t, 0.0, OptionSharePercent(p, 1))

	p = ponderWithCounts(3, 1)
	assert.InDelta(t, 75.0, OptionSharePercent(p, 0), 1e-9)
	assert.InDelta(t, 25.0, OptionSharePercent(p, 1), 1e-9)
}

func TestOptionSharePercentNoVotes(t *testing.T) {
	p := ponderWithCounts(0, 0, 0)
	for i := range p.VoteCounts {
		assert.Equal(t, 0.0, OptionSharePercent(p, i))
	}
}

func TestOptionSharePercentOutOfRange(t *testing.T) {
	p := ponderWithCounts(1, 1)
	assert.Equal(t, 0.0, OptionSharePercent(p, -1))
	assert.Equal(t, 0.0, OptionSharePercent(p, 2))
}

func TestOptionShareFullAllocation(t *testing.T) {
	// Shares sum to ~100 whenever any vote exists, exactly 0 otherwise.
	cases := [][]uint64{
		{1, 0}, {3, 1}, {7, 11, 2}, {1, 1, 1, 1, 1, 1, 1}, {0, 0},
	}
	for _, counts := range cases {
		p := ponderWithCounts(counts...)
		var sum, total float64
		for i := range counts {
			sum += OptionSharePercent(p, i)
		}
		for _, c := range counts {
			total += float64(c)
		}
		if total == 0 {
			assert.Equal(t, 0.0, sum)
		} else {
			assert.InDelta(t, 100.0, sum, 0.1, "counts %v", counts)
		}
	}
}

func TestTimeToExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.Equal(t, "Ended", TimeToExpiry(now.Unix()-10, now))
	assert.Equal(t, "Ended", TimeToExpiry(now.Unix()-1, now))
	// The deadline itself is already ended, not "0m".
	assert.Equal(t, "Ended", TimeToExpiry(now.Unix(), now))

	assert.Equal(t, "30m", TimeToExpiry(now.Unix()+30*60, now))
	assert.Equal(t, "2h 15m", TimeToExpiry(now.Unix()+2*3600+15*60, now))
	assert.Equal(t, "3d 4h", TimeToExpiry(now.Unix()+(3*24+4)*3600, now))
}

func TestTimeToExpiryMonotonic(t *testing.T) {
	// Walking now forward must never lengthen the rendered remaining time.
	endTime := int64(1_700_100_000)
	prev := ""
	prevSeconds := int64(1 << 62)
	for offset := int64(-90_000); offset <= 90_000; offset += 600 {
		now := time.Unix(endTime+offset, 0)
		remaining := endTime - now.Unix()
		s := TimeToExpiry(endTime, now)
		if prev != "" && remaining < prevSeconds && prev == "Ended" {
			assert.Equal(t, "Ended", s)
		}
		prev = s
		prevSeconds = remaining
	}
	assert.Equal(t, "Ended", TimeToExpiry(endTime, time.Unix(endTime+1, 0)))
}

func TestIsEndingSoon(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, IsEndingSoon(now.Unix()+30*60, now))
	assert.True(t, IsEndingSoon(now.Unix(), now))
	assert.False(t, IsEndingSoon(now.Unix()+2*3600, now))
	// Already ended is not "ending soon".
	assert.False(t, IsEndingSoon(now.Unix()-10, now))
}

func TestColorForOption(t *testing.T) {
	assert.Equal(t, ColorGreen, ColorForOption(0, 2))
	assert.Equal(t, ColorRed, ColorForOption(1, 2))

	// More options than palette entries cycle deterministically.
	assert.Equal(t, ColorForOption(0, 7), ColorForOption(5, 7))
	assert.Equal(t, ColorForOption(1, 7), ColorForOption(6, 7))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$2.00", FormatAmount(domain.MustAmount("2")))
	assert.Equal(t, "$0.50", FormatAmount(domain.MustAmount("0.5")))
	assert.Equal(t, "$1.2k", FormatAmount(domain.MustAmount("1200")))
}
