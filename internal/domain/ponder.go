package domain

import (
	"regexp"
	"time"
)

// PonderID is the ledger-assigned market identifier. IDs are immutable and
// never reused.
type PonderID uint64

// Address is a ledger account identifier: "0x" followed by 16 hex digits.
type Address string

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{16}$`)

// Valid reports whether the address has the ledger's account format.
func (a Address) Valid() bool {
	return addressPattern.MatchString(string(a))
}

// Category is one of the fixed ponder categories.
type Category string

// Categories is the fixed set of ponder categories, in display order.
var Categories = []Category{
	"Sports", "Politics", "Crypto", "Entertainment", "Technology",
	"Science", "Economics", "Social", "Gaming", "Other",
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Ponder is a prediction market as reported by the ledger. Every field is
// owned by the ledger; the client only ever proposes changes through
// transactions and re-reads the result.
type Ponder struct {
	ID            PonderID `json:"id"`
	Question      string   `json:"question"`
	Description   string   `json:"description"`
	Options       []string `json:"options"`
	Category      Category `json:"category"`
	Creator       Address  `json:"creator"`
	CreatedAt     int64    `json:"createdAt"` // unix seconds
	EndTime       int64    `json:"endTime"`   // unix seconds
	MinBet        Amount   `json:"minBet"`
	MaxBet        Amount   `json:"maxBet"`
	VoteCounts    []uint64 `json:"voteCounts"` // aligned 1:1 with Options
	TotalPool     Amount   `json:"totalPool"`
	JuiceAmount   Amount   `json:"juiceAmount"`
	IsJuiced      bool     `json:"isJuiced"`
	Resolved      bool     `json:"resolved"`
	WinningOption int      `json:"winningOption"` // meaningful only when Resolved
}

// TotalVotes returns the sum of all option vote counts.
func (p Ponder) TotalVotes() uint64 {
	var sum uint64
	for _, c := range p.VoteCounts {
		sum += c
	}
	return sum
}

// Ended reports whether the ponder's betting window has closed at now.
func (p Ponder) Ended(now time.Time) bool {
	return now.Unix() > p.EndTime
}

// Vote is a single accepted vote on a ponder. Votes are immutable once the
// ledger accepts them.
type Vote struct {
	PonderID   PonderID `json:"ponderId"`
	Option     int      `json:"option"` // index into the ponder's Options
	IsFreeVote bool     `json:"isFreeVote"`
	Amount     Amount   `json:"amount"` // 0 for free votes
	Timestamp  int64    `json:"timestamp"`
	Voter      Address  `json:"voter"`
}
