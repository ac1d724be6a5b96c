package analytics

import (
	"fmt"

	"github.com/flowponder/ponderd/internal/domain"
)

// FormatAmount renders an amount for display: "$2.00" below a thousand,
// "$1.2k" at or above.
func FormatAmount(a domain.Amount) string {
	v := a.Float64()
	if v >= 1000 {
		return fmt.Sprintf("$%.1fk", v/1000)
	}
	return fmt.Sprintf("$%.2f", v)
}
