package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// AmountFractionDigits is the number of fraction digits in the ledger's
// fixed-point token type. Every amount crossing the ledger boundary is
// serialized with exactly this precision.
const AmountFractionDigits = 8

// amountScale is 10^AmountFractionDigits.
const amountScale = 100_000_000

// Amount is a non-negative token amount in fixed-point representation with
// eight fraction digits. Arithmetic on Amount is plain integer arithmetic on
// the scaled value, so amounts never accumulate floating-point error.
type Amount uint64

// ParseAmount parses a decimal string such as "1", "0.5", or "12.30000000"
// into an Amount. More than eight fraction digits is an error, as is any
// sign or non-digit character.
func ParseAmount(s string) (Amount, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("domain: empty amount")
	}
	if whole == "" {
		whole = "0"
	}

	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("domain: invalid amount %q: %w", s, err)
	}

	var f uint64
	if frac != "" {
		if len(frac) > AmountFractionDigits {
			return 0, fmt.Errorf("domain: amount %q exceeds %d fraction digits", s, AmountFractionDigits)
		}
		f, err = strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("domain: invalid amount %q: %w", s, err)
		}
		for i := len(frac); i < AmountFractionDigits; i++ {
			f *= 10
		}
	}

	if w > (1<<64-1-f)/amountScale {
		return 0, fmt.Errorf("domain: amount %q overflows", s)
	}
	return Amount(w*amountScale + f), nil
}

// MustAmount is ParseAmount that panics on error. Intended for constants and
// tests only.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount in the ledger's canonical wire form, always with
// eight fraction digits, e.g. "1.00000000".
func (a Amount) String() string {
	return fmt.Sprintf("%d.%08d", uint64(a)/amountScale, uint64(a)%amountScale)
}

// Float64 returns the amount as a float64. Display use only; never fed back
// into ledger arguments.
func (a Amount) Float64() float64 {
	return float64(a) / amountScale
}

// MarshalJSON encodes the amount as its canonical decimal string so JSON
// consumers never see precision loss from float encoding.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
