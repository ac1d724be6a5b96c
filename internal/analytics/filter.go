package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/flowponder/ponderd/internal/domain"
)

// Filter selects a subset of ponders for listing.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterFeatured   Filter = "featured"    // juiced ponders only
	FilterEndingSoon Filter = "ending-soon" // under an hour remaining
)

// ParseFilter validates a filter name from an API request.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterAll, FilterFeatured, FilterEndingSoon:
		return Filter(s), nil
	case "":
		return FilterAll, nil
	}
	return "", fmt.Errorf("analytics: unknown filter %q", s)
}

// FilterPonders returns the ponders matching the filter and, when query is
// non-empty, a case-insensitive substring match on question or description.
// Input order is preserved.
func FilterPonders(ponders []domain.Ponder, filter Filter, query string, now time.Time) []domain.Ponder {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.Ponder, 0, len(ponders))
	for _, p := range ponders {
		switch filter {
		case FilterFeatured:
			if !p.IsJuiced {
				continue
			}
		case FilterEndingSoon:
			if !IsEndingSoon(p.EndTime, now) {
				continue
			}
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Question), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		out = append(out, p)
	}
	return out
}
