package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
)

func TestUFix64WireFormat(t *testing.T) {
	v := UFix64(domain.MustAmount("1"))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"UFix64","value":"1.00000000"}`, string(data))

	v = UFix64(domain.MustAmount("0.5"))
	data, err = json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"UFix64","value":"0.50000000"}`, string(data))
}

func TestUInt64WireFormat(t *testing.T) {
	data, err := json.Marshal(UInt64(42))
	require.NoError(t, err)
	// Integers must cross the wire as decimal strings.
	assert.JSONEq(t, `{"type":"UInt64","value":"42"}`, string(data))
}

func TestUInt8Bounds(t *testing.T) {
	v, err := UInt8(0)
	require.NoError(t, err)
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"UInt8","value":"0"}`, string(data))

	_, err = UInt8(-1)
	require.Error(t, err)
	assert.Equal(t, domain.LedgerSubmissionRejected, domain.LedgerCode(err))

	_, err = UInt8(256)
	require.Error(t, err)
	assert.Equal(t, domain.LedgerSubmissionRejected, domain.LedgerCode(err))
}

func TestAddressArgValidation(t *testing.T) {
	v, err := Address("0xf8d6e0586b0a20c7")
	require.NoError(t, err)
	assert.Equal(t, "Address", v.Type)

	_, err = Address("not-an-address")
	require.Error(t, err)

	var le *domain.LedgerError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, domain.LedgerSubmissionRejected, le.Code)
}

func TestStringArrayWireFormat(t *testing.T) {
	data, err := json.Marshal(StringArray([]string{"Yes", "No"}))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"Array","value":[{"type":"String","value":"Yes"},{"type":"String","value":"No"}]}`,
		string(data))
}
