// Package analytics derives market views from raw ledger snapshots. Every
// function here is pure and deterministic: no I/O, no clock reads (callers
// pass now explicitly), no mutation of inputs.
package analytics

import (
	"fmt"
	"time"

	"github.com/flowponder/ponderd/internal/domain"
)

// endingSoonWindow is the remaining-time threshold below which a ponder
// counts as ending soon.
const endingSoonWindow = time.Hour

// OptionSharePercent returns the percentage of all votes cast for the option
// at idx. It is 0 when no votes have been cast or idx is out of range, never
// NaN and never an error.
func OptionSharePercent(p domain.Ponder, idx int) float64 {
	if idx < 0 || idx >= len(p.VoteCounts) {
		return 0
	}
	total := p.TotalVotes()
	if total == 0 {
		return 0
	}
	return float64(p.VoteCounts[idx]) / float64(total) * 100
}

// TimeToExpiry formats the time remaining until endTime as seen at now.
// Past deadlines render as "Ended"; otherwise days+hours above 24h,
// hours+minutes above 1h, minutes below that. Units are never negative.
func TimeToExpiry(endTime int64, now time.Time) string {
	remaining := endTime - now.Unix()
	if remaining <= 0 {
		return "Ended"
	}

	hours := remaining / 3600
	minutes := (remaining % 3600) / 60

	if hours > 24 {
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// IsEndingSoon reports whether the remaining time is under one hour but the
// deadline has not yet passed. Already-ended ponders are not "ending soon".
func IsEndingSoon(endTime int64, now time.Time) bool {
	remaining := endTime - now.Unix()
	return remaining >= 0 && remaining < int64(endingSoonWindow.Seconds())
}
