package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want Amount
		ok   bool
	}{
		{"0", 0, true},
		{"1", 100_000_000, true},
		{"0.5", 50_000_000, true},
		{"0.10", 10_000_000, true},
		{"12.30000000", 1_230_000_000, true},
		{"100.00000001", 10_000_000_001, true},
		{".5", 50_000_000, true},
		{"", 0, false},
		{"-1", 0, false},
		{"1.000000001", 0, false}, // 9 fraction digits
		{"abc", 0, false},
		{"1.2.3", 0, false},
		// uint64 boundary: the largest representable amount parses, one
		// step past it in either the whole or fraction part fails.
		{"184467440737.09551615", Amount(1<<64 - 1), true},
		{"184467440737.09551616", 0, false},
		{"184467440738", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestAmountString(t *testing.T) {
	assert.Equal(t, "0.00000000", Amount(0).String())
	assert.Equal(t, "1.00000000", MustAmount("1").String())
	assert.Equal(t, "0.10000000", MustAmount("0.1").String())
	assert.Equal(t, "2.50000000", MustAmount("2.5").String())
}

func TestAmountJSONRoundTrip(t *testing.T) {
	a := MustAmount("42.125")
	data, err := a.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"42.12500000"`, string(data))

	var back Amount
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, a, back)
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("Crypto"))
	assert.False(t, ValidCategory("crypto"))
	assert.False(t, ValidCategory(""))
}

func TestAddressValid(t *testing.T) {
	assert.True(t, Address("0xf8d6e0586b0a20c7").Valid())
	assert.False(t, Address("f8d6e0586b0a20c7").Valid())
	assert.False(t, Address("0x123").Valid())
	assert.False(t, Address("").Valid())
}
