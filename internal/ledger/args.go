// Package ledger is the sole boundary to the remote Ponder ledger. It
// submits transactions, polls for seals, executes read-only scripts, and
// normalizes every wire-level value and error into the domain vocabulary so
// downstream components never handle untyped ledger data.
package ledger

import (
	"encoding/json"
	"strconv"

	"github.com/flowponder/ponderd/internal/domain"
)

// Value is one typed positional argument in the ledger's wire encoding.
// Fixed-point amounts carry exactly eight fraction digits; integers are
// decimal strings. An encoding mismatch is caught here, before any network
// call, and surfaces as LedgerError{SubmissionRejected}.
type Value struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Address builds an Address argument. The account format is validated
// client-side.
func Address(a domain.Address) (Value, error) {
	if !a.Valid() {
		return Value{}, domain.NewLedgerError(domain.LedgerSubmissionRejected, nil,
			"invalid address argument %q", a)
	}
	return Value{Type: "Address", Value: string(a)}, nil
}

// UFix64 builds a fixed-point argument in canonical eight-digit form.
func UFix64(a domain.Amount) Value {
	return Value{Type: "UFix64", Value: a.String()}
}

// UInt64 builds an unsigned integer argument serialized as a decimal string.
func UInt64(v uint64) Value {
	return Value{Type: "UInt64", Value: uint64String(v)}
}

// UInt8 builds an option-index argument. Out-of-range values are a
// client-side submission rejection.
func UInt8(v int) (Value, error) {
	if v < 0 || v > 255 {
		return Value{}, domain.NewLedgerError(domain.LedgerSubmissionRejected, nil,
			"UInt8 argument %d out of range", v)
	}
	return Value{Type: "UInt8", Value: uint64String(uint64(v))}, nil
}

// String builds a string argument.
func String(s string) Value {
	return Value{Type: "String", Value: s}
}

// StringArray builds an ordered string-sequence argument.
func StringArray(ss []string) Value {
	items := make([]Value, len(ss))
	for i, s := range ss {
		items[i] = String(s)
	}
	return Value{Type: "Array", Value: items}
}

func uint64String(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// encodeArgs serializes each argument to its JSON wire form. It never fails
// for values produced by the typed constructors above.
func encodeArgs(args []Value) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(args))
	for i, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, domain.NewLedgerError(domain.LedgerSubmissionRejected, err,
				"encode argument %d", i)
		}
		out[i] = data
	}
	return out, nil
}
